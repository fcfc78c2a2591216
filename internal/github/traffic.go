package github

import (
	"context"
	"fmt"
	"net/url"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/sync/errgroup"
)

func trafficPath(owner, name, endpoint string) string {
	return fmt.Sprintf("/repos/%s/%s/traffic/%s", url.PathEscape(owner), url.PathEscape(name), endpoint)
}

// GetViews returns the daily page views of a repository.
func GetViews(ctx context.Context, f Fetcher, token, owner, name string) ([]TrafficPoint, error) {
	var raw gh.TrafficViews
	if err := fetchJSON(ctx, f, token, trafficPath(owner, name, "views"), &raw); err != nil {
		return nil, err
	}
	return trafficPoints(raw.Views), nil
}

// GetClones returns the daily clones of a repository.
func GetClones(ctx context.Context, f Fetcher, token, owner, name string) ([]TrafficPoint, error) {
	var raw gh.TrafficClones
	if err := fetchJSON(ctx, f, token, trafficPath(owner, name, "clones"), &raw); err != nil {
		return nil, err
	}
	return trafficPoints(raw.Clones), nil
}

// GetReferrers returns the referring sites of a repository in API order.
func GetReferrers(ctx context.Context, f Fetcher, token, owner, name string) ([]Referrer, error) {
	var raw []*gh.TrafficReferrer
	if err := fetchJSON(ctx, f, token, trafficPath(owner, name, "popular/referrers"), &raw); err != nil {
		return nil, err
	}
	referrers := make([]Referrer, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		referrers = append(referrers, Referrer{
			Referrer: r.GetReferrer(),
			Count:    r.GetCount(),
			Uniques:  r.GetUniques(),
		})
	}
	return referrers, nil
}

func trafficPoints(data []*gh.TrafficData) []TrafficPoint {
	points := make([]TrafficPoint, 0, len(data))
	for _, d := range data {
		if d == nil {
			continue
		}
		points = append(points, TrafficPoint{
			Timestamp: d.GetTimestamp().Time,
			Count:     d.GetCount(),
			Uniques:   d.GetUniques(),
		})
	}
	return points
}

// GetRepositoryMetrics fetches views, clones and referrers of repo
// concurrently. It never fails as a whole: a sub-fetch that errors leaves
// its series empty and records the error in the series outcome.
func GetRepositoryMetrics(ctx context.Context, f Fetcher, token string, repo Repository) RepositoryStats {
	stats := RepositoryStats{Repository: repo}

	owner, name, ok := repo.Split()
	if !ok {
		err := fmt.Errorf("invalid repository name %q", repo.FullName)
		stats.Views = failed[TrafficPoint](err)
		stats.Clones = failed[TrafficPoint](err)
		stats.Referrers = failed[Referrer](err)
		return stats
	}

	// Each goroutine records its own outcome and returns nil, so Wait joins
	// all three instead of stopping at the first failure.
	var g errgroup.Group
	g.Go(func() error {
		stats.Views = outcome(GetViews(ctx, f, token, owner, name))
		return nil
	})
	g.Go(func() error {
		stats.Clones = outcome(GetClones(ctx, f, token, owner, name))
		return nil
	})
	g.Go(func() error {
		stats.Referrers = outcome(GetReferrers(ctx, f, token, owner, name))
		return nil
	})
	_ = g.Wait()

	return stats
}

func outcome[T any](data []T, err error) Series[T] {
	if err != nil {
		return failed[T](err)
	}
	return succeeded(data)
}
