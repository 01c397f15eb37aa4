package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ghinstallation "github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/GrowlyX/refactorproject-web/internal/config"
)

// GitHubAppService authenticates as the GitHub App. It resolves
// installations, mints installation tokens and hands out per-installation
// clients whose transports mint tokens on demand.
type GitHubAppService struct {
	cfg       config.GitHubConfig
	appClient *github.Client
	oauth     *oauth2.Config
}

func NewGitHubAppService(cfg config.GitHubConfig) (*GitHubAppService, error) {
	if cfg.AppID == 0 {
		return nil, fmt.Errorf("GitHub App ID is required")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("GitHub App private key is required")
	}

	tr, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.AppID, []byte(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create app transport: %w", err)
	}

	httpClient := &http.Client{
		Transport: tr,
		Timeout:   30 * time.Second,
	}

	return &GitHubAppService{
		cfg:       cfg,
		appClient: github.NewClient(httpClient),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     githuboauth.Endpoint,
			RedirectURL:  cfg.OAuthRedirect,
			Scopes:       []string{"read:org", "read:user", "repo"},
		},
	}, nil
}

func (s *GitHubAppService) GetInstallation(ctx context.Context, installationID int64) (*Installation, error) {
	inst, _, err := s.appClient.Apps.GetInstallation(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get installation %d: %w", installationID, err)
	}
	return convertInstallation(inst), nil
}

func (s *GitHubAppService) ListInstallations(ctx context.Context) ([]*Installation, error) {
	opts := &github.ListOptions{PerPage: 100}

	var installations []*Installation
	for {
		page, resp, err := s.appClient.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list installations: %w", err)
		}

		for _, inst := range page {
			installations = append(installations, convertInstallation(inst))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return installations, nil
}

func (s *GitHubAppService) CreateInstallationToken(ctx context.Context, installationID int64) (*InstallationToken, error) {
	token, _, err := s.appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token for %d: %w", installationID, err)
	}
	return &InstallationToken{
		Token:     token.GetToken(),
		ExpiresAt: token.GetExpiresAt().Time,
	}, nil
}

func (s *GitHubAppService) DeleteInstallation(ctx context.Context, installationID int64) error {
	if _, err := s.appClient.Apps.DeleteInstallation(ctx, installationID); err != nil {
		return fmt.Errorf("failed to delete installation %d: %w", installationID, err)
	}
	return nil
}

// InstallationClient returns a GitHub client authenticated as one
// installation; its transport mints and refreshes the installation token.
func (s *GitHubAppService) InstallationClient(installationID int64) (*github.Client, error) {
	tr, err := ghinstallation.New(http.DefaultTransport, s.cfg.AppID, installationID, []byte(s.cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}

	return github.NewClient(&http.Client{
		Transport: tr,
		Timeout:   30 * time.Second,
	}), nil
}

// OrgInstallationURL is where an org admin installs the App on an organization.
func (s *GitHubAppService) OrgInstallationURL(orgLogin string) string {
	return fmt.Sprintf("https://github.com/organizations/%s/settings/installations/new?app_id=%d", orgLogin, s.cfg.AppID)
}

// UserInstallationURL is the account-agnostic install page.
func (s *GitHubAppService) UserInstallationURL() string {
	return fmt.Sprintf("https://github.com/settings/installations/new?app_id=%d", s.cfg.AppID)
}

// OAuthURL builds the user authorization URL for org linking outside the
// installation flow.
func (s *GitHubAppService) OAuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// ExchangeOAuthCode swaps an authorization code for a user access token.
func (s *GitHubAppService) ExchangeOAuthCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange OAuth code: %w", err)
	}
	return token, nil
}

// UserClient returns a GitHub client authenticated with a user OAuth token.
func (s *GitHubAppService) UserClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// WebhookSecret exposes the shared secret for signature validation.
func (s *GitHubAppService) WebhookSecret() []byte {
	return []byte(s.cfg.WebhookSecret)
}

func convertInstallation(inst *github.Installation) *Installation {
	out := &Installation{
		ID: inst.GetID(),
	}
	if account := inst.GetAccount(); account != nil {
		out.Account = InstallationAccount{
			ID:    account.GetID(),
			Login: account.GetLogin(),
			Type:  account.GetType(),
		}
	}
	return out
}
