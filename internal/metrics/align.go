// Package metrics turns per-repository traffic into chart-ready rows for
// side-by-side comparison.
package metrics

import (
	"sort"
	"time"

	"github.com/stahnma/gh-metrics/internal/github"
)

// dateLayout is the calendar-day key; ISO dates sort lexicographically.
const dateLayout = "2006-01-02"

// TopReferrers is how many referrers per repository enter the comparison.
const TopReferrers = 5

// Cell is one repository's value within a row.
type Cell struct {
	Repository string `json:"repository"`
	Count      int    `json:"count"`
	Uniques    int    `json:"uniques"`
}

// Row is one calendar day across every compared repository.
type Row struct {
	Date  string `json:"date"`
	Cells []Cell `json:"cells"`
}

// ReferrerRow is one referrer across every compared repository.
type ReferrerRow struct {
	Referrer string `json:"referrer"`
	Cells    []Cell `json:"cells"`
}

// Day truncates a timestamp to its UTC calendar date.
func Day(ts time.Time) string {
	return ts.UTC().Format(dateLayout)
}

// AlignViews aligns the views series of all repositories by day.
func AlignViews(stats []github.RepositoryStats) []Row {
	return align(stats, func(s github.RepositoryStats) []github.TrafficPoint { return s.Views.Data })
}

// AlignClones aligns the clones series of all repositories by day.
func AlignClones(stats []github.RepositoryStats) []Row {
	return align(stats, func(s github.RepositoryStats) []github.TrafficPoint { return s.Clones.Data })
}

// align builds one row per distinct day found in any series, ascending.
// Every row carries a cell for every repository, in input order; a
// repository without data for that day reports zeros.
func align(stats []github.RepositoryStats, series func(github.RepositoryStats) []github.TrafficPoint) []Row {
	byRepo := make([]map[string]github.TrafficPoint, len(stats))
	days := make(map[string]struct{})
	for i, s := range stats {
		points := make(map[string]github.TrafficPoint)
		for _, p := range series(s) {
			day := Day(p.Timestamp)
			days[day] = struct{}{}
			if _, seen := points[day]; !seen {
				points[day] = p
			}
		}
		byRepo[i] = points
	}

	sorted := make([]string, 0, len(days))
	for day := range days {
		sorted = append(sorted, day)
	}
	sort.Strings(sorted)

	rows := make([]Row, 0, len(sorted))
	for _, day := range sorted {
		row := Row{Date: day, Cells: make([]Cell, len(stats))}
		for i, s := range stats {
			p := byRepo[i][day]
			row.Cells[i] = Cell{Repository: s.Repository.FullName, Count: p.Count, Uniques: p.Uniques}
		}
		rows = append(rows, row)
	}
	return rows
}

// CompareReferrers takes the union of each repository's top referrers, in
// first-seen order, and reports every repository's count for each of them.
func CompareReferrers(stats []github.RepositoryStats) []ReferrerRow {
	var names []string
	seen := make(map[string]bool)
	for _, s := range stats {
		refs := s.Referrers.Data
		if len(refs) > TopReferrers {
			refs = refs[:TopReferrers]
		}
		for _, r := range refs {
			if !seen[r.Referrer] {
				seen[r.Referrer] = true
				names = append(names, r.Referrer)
			}
		}
	}

	rows := make([]ReferrerRow, 0, len(names))
	for _, name := range names {
		row := ReferrerRow{Referrer: name, Cells: make([]Cell, len(stats))}
		for i, s := range stats {
			cell := Cell{Repository: s.Repository.FullName}
			for _, r := range s.Referrers.Data {
				if r.Referrer == name {
					cell.Count = r.Count
					cell.Uniques = r.Uniques
					break
				}
			}
			row.Cells[i] = cell
		}
		rows = append(rows, row)
	}
	return rows
}
