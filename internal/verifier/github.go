package verifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v80/github"

	"github.com/neiii/stargate-better-auth/internal/core"
)

// StarChecker asks the provider whether the user behind the access token has
// starred the repository. Implementations report the raw HTTP status so the
// verifier can apply the 204/404/401/403 table.
type StarChecker interface {
	IsStarred(ctx context.Context, accessToken string, ref core.RepositoryRef) (starred bool, status int, err error)
}

var _ StarChecker = (*GitHubChecker)(nil)

// GitHubChecker checks star status against the GitHub REST API.
// It supports GitHub Cloud and GitHub Enterprise.
type GitHubChecker struct {
	serverBaseURL string
	userAgent     string
	httpClient    *http.Client
}

func NewGitHubChecker(serverBaseURL, userAgent string) *GitHubChecker {
	return &GitHubChecker{
		serverBaseURL: serverBaseURL,
		userAgent:     userAgent,
	}
}

// WithHTTPClient overrides the underlying HTTP client (timeouts, tests).
func (g *GitHubChecker) WithHTTPClient(httpClient *http.Client) *GitHubChecker {
	g.httpClient = httpClient
	return g
}

// IsStarred issues GET /user/starred/{owner}/{repo} authenticated as the
// user. GitHub answers 204 (starred) or 404 (not starred) with no body;
// go-github folds both into the boolean. Any other status comes back in
// status with a non-nil err; a transport failure yields status 0.
func (g *GitHubChecker) IsStarred(ctx context.Context, accessToken string, ref core.RepositoryRef) (bool, int, error) {
	client := github.NewClient(g.httpClient).WithAuthToken(accessToken)

	if g.serverBaseURL != "" {
		// we never touch media uploads, the base URL works for both
		var err error
		client, err = client.WithEnterpriseURLs(g.serverBaseURL, g.serverBaseURL)
		if err != nil {
			return false, 0, fmt.Errorf("creating github enterprise client: %w", err)
		}
	}
	if g.userAgent != "" {
		client.UserAgent = g.userAgent
	}

	starred, resp, err := client.Activity.IsStarred(ctx, ref.Owner, ref.Repo)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return starred, status, err
}
