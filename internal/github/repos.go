package github

import (
	"context"
	"fmt"
	"net/url"

	gh "github.com/google/go-github/v68/github"
)

// GetAuthenticatedUser validates token by looking up the current user.
func GetAuthenticatedUser(ctx context.Context, f Fetcher, token string) (User, error) {
	var raw gh.User
	if err := fetchJSON(ctx, f, token, "/user", &raw); err != nil {
		return User{}, err
	}
	return User{Login: raw.GetLogin(), Name: raw.GetName()}, nil
}

// ListRepositories returns up to 100 repositories of a user or
// organization, most recently updated first. An empty result means the
// account has no repositories.
func ListRepositories(ctx context.Context, f Fetcher, token, account string) ([]Repository, error) {
	path := fmt.Sprintf("/users/%s/repos?per_page=100&sort=updated", url.PathEscape(account))
	var raw []*gh.Repository
	if err := fetchJSON(ctx, f, token, path, &raw); err != nil {
		return nil, err
	}
	repos := make([]Repository, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		repos = append(repos, repositoryFromAPI(r))
	}
	return repos, nil
}

// GetRepository looks up a single repository by owner and name.
func GetRepository(ctx context.Context, f Fetcher, token, owner, name string) (Repository, error) {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
	var raw gh.Repository
	if err := fetchJSON(ctx, f, token, path, &raw); err != nil {
		return Repository{}, err
	}
	return repositoryFromAPI(&raw), nil
}
