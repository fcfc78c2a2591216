package metrics

import (
	"github.com/montanaflynn/stats"

	"github.com/stahnma/gh-metrics/internal/github"
)

// Popularity is the stars and forks of one repository.
type Popularity struct {
	Repository string `json:"repository"`
	Stars      int    `json:"stars"`
	Forks      int    `json:"forks"`
}

// Summary is the comparison summary of one repository.
type Summary struct {
	Repository     string  `json:"repository"`
	Stars          int     `json:"stars"`
	Forks          int     `json:"forks"`
	TotalViews     int     `json:"total_views"`
	UniqueVisitors int     `json:"unique_visitors"`
	TotalClones    int     `json:"total_clones"`
	MeanDailyViews float64 `json:"mean_daily_views"`
	PeakDailyViews int     `json:"peak_daily_views"`
	// Partial is set when some traffic series of the repository is
	// missing, so the totals undercount.
	Partial bool `json:"partial,omitempty"`
}

// Unavailable marks a series that fell back to empty.
type Unavailable struct {
	Repository string `json:"repository"`
	Series     string `json:"series"`
	Reason     string `json:"reason"`
}

// Comparison is everything the dashboard renders for a selection.
type Comparison struct {
	Views       []Row         `json:"views"`
	Clones      []Row         `json:"clones"`
	Referrers   []ReferrerRow `json:"referrers"`
	Popularity  []Popularity  `json:"popularity"`
	Summary     []Summary     `json:"summary"`
	Unavailable []Unavailable `json:"unavailable,omitempty"`
}

// Compare builds the full comparison for stats, in the given order.
func Compare(s []github.RepositoryStats) Comparison {
	return Comparison{
		Views:       AlignViews(s),
		Clones:      AlignClones(s),
		Referrers:   CompareReferrers(s),
		Popularity:  StarsAndForks(s),
		Summary:     Summarize(s),
		Unavailable: unavailable(s),
	}
}

// StarsAndForks lists stars and forks per repository.
func StarsAndForks(s []github.RepositoryStats) []Popularity {
	out := make([]Popularity, 0, len(s))
	for _, st := range s {
		out = append(out, Popularity{
			Repository: st.Repository.FullName,
			Stars:      st.Repository.Stars,
			Forks:      st.Repository.Forks,
		})
	}
	return out
}

// Summarize totals each repository's traffic.
func Summarize(s []github.RepositoryStats) []Summary {
	out := make([]Summary, 0, len(s))
	for _, st := range s {
		views := counts(st.Views.Data)
		sum := Summary{
			Repository:     st.Repository.FullName,
			Stars:          st.Repository.Stars,
			Forks:          st.Repository.Forks,
			TotalViews:     total(views),
			UniqueVisitors: total(uniques(st.Views.Data)),
			TotalClones:    total(counts(st.Clones.Data)),
			Partial:        st.Degraded(),
		}
		// Empty input is the only error these return; zero is the right answer then.
		if mean, err := stats.Mean(views); err == nil {
			sum.MeanDailyViews, _ = stats.Round(mean, 2)
		}
		if peak, err := stats.Max(views); err == nil {
			sum.PeakDailyViews = int(peak)
		}
		out = append(out, sum)
	}
	return out
}

func unavailable(s []github.RepositoryStats) []Unavailable {
	var out []Unavailable
	add := func(repo, series string, kind github.FailureKind) {
		out = append(out, Unavailable{Repository: repo, Series: series, Reason: kind.String()})
	}
	for _, st := range s {
		name := st.Repository.FullName
		if !st.Views.OK() {
			add(name, "views", st.Views.Failure())
		}
		if !st.Clones.OK() {
			add(name, "clones", st.Clones.Failure())
		}
		if !st.Referrers.OK() {
			add(name, "referrers", st.Referrers.Failure())
		}
	}
	return out
}

func counts(points []github.TrafficPoint) stats.Float64Data {
	data := make(stats.Float64Data, len(points))
	for i, p := range points {
		data[i] = float64(p.Count)
	}
	return data
}

func uniques(points []github.TrafficPoint) stats.Float64Data {
	data := make(stats.Float64Data, len(points))
	for i, p := range points {
		data[i] = float64(p.Uniques)
	}
	return data
}

func total(data stats.Float64Data) int {
	sum, err := stats.Sum(data)
	if err != nil {
		return 0
	}
	return int(sum)
}
