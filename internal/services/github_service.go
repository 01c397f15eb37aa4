package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// GitHubService performs the installation-scoped listings the reconciler
// consumes. Every paginated call is drained to exhaustion before returning.
type GitHubService struct {
	app *GitHubAppService
}

func NewGitHubService(app *GitHubAppService) *GitHubService {
	return &GitHubService{app: app}
}

func (s *GitHubService) ListInstallationRepositories(ctx context.Context, installationID int64) ([]Repository, error) {
	client, err := s.app.InstallationClient(installationID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opts := &github.ListOptions{PerPage: 100}

	var repos []Repository
	for {
		page, resp, err := client.Apps.ListRepos(ctx, opts)
		if err != nil {
			utils.LogGitHubCall("list repositories", installationID, time.Since(start), err)
			return nil, fmt.Errorf("failed to list installation repositories: %w", err)
		}

		for _, repo := range page.Repositories {
			repos = append(repos, convertRepository(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	utils.LogGitHubCall("list repositories", installationID, time.Since(start), nil, utils.LogFields{
		"count": len(repos),
	})
	return repos, nil
}

func (s *GitHubService) ListOrganizationMembers(ctx context.Context, installationID int64, orgLogin string) ([]Member, error) {
	client, err := s.app.InstallationClient(installationID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opts := &github.ListMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var members []Member
	for {
		page, resp, err := client.Organizations.ListMembers(ctx, orgLogin, opts)
		if err != nil {
			utils.LogGitHubCall("list members", installationID, time.Since(start), err)
			return nil, fmt.Errorf("failed to list members of %s: %w", orgLogin, err)
		}

		for _, member := range page {
			members = append(members, Member{
				ID:    member.GetID(),
				Login: member.GetLogin(),
				Email: member.Email,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	utils.LogGitHubCall("list members", installationID, time.Since(start), nil, utils.LogFields{
		"org":   orgLogin,
		"count": len(members),
	})
	return members, nil
}

func convertRepository(repo *github.Repository) Repository {
	return Repository{
		ID:            repo.GetID(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		HTMLURL:       repo.GetHTMLURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		Language:      repo.Language,
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
	}
}
