package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Dosada05/arena-hub/models"
	"golang.org/x/oauth2"
)

// IdentityProvider is the external OAuth provider users sign in with.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	// Identify обменивает код авторизации на профиль пользователя у провайдера.
	Identify(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

type oauthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewOAuthProvider(cfg OAuthProviderConfig) IdentityProvider {
	return &oauthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *oauthProvider) Identify(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %v", ErrAuthenticationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return identityFromUserInfo(info)
}

// identityFromUserInfo понимает распространённые варианты полей (Discord, OIDC, GitHub).
func identityFromUserInfo(info map[string]any) (*models.ExternalIdentity, error) {
	identity := &models.ExternalIdentity{
		ExternalID: firstString(info, "id", "sub"),
		Username:   firstString(info, "username", "preferred_username", "login", "name"),
		AvatarURL:  firstString(info, "avatar_url", "picture"),
	}
	if identity.ExternalID == "" || identity.Username == "" {
		return nil, fmt.Errorf("%w: userinfo has no id or username", ErrAuthenticationFailed)
	}
	return identity, nil
}

func firstString(info map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := info[key].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
