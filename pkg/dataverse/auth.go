package dataverse

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authentication modes.
const (
	AuthClientCredentials = "client_credentials"
	AuthPassword          = "password"
	AuthToken             = "token"
)

// DefaultAuthority is the Microsoft identity platform authority.
const DefaultAuthority = "https://login.microsoftonline.com"

// DefaultPublicClientID is the well-known application id used by the
// Dataverse sample connection strings for interactive and password logins.
const DefaultPublicClientID = "51f81489-12ee-4a9e-aaae-a2591f45987d"

// AuthConfig contains the credentials used to acquire bearer tokens.
type AuthConfig struct {
	Mode         string
	Authority    string
	TenantID     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Token        string

	// Scopes defaults to "<resource>/.default".
	Scopes []string
}

// NewTokenSource returns a caching token source for the given resource URL.
// For the password mode the first token is acquired eagerly, so bad
// credentials surface here rather than on the first query.
func NewTokenSource(ctx context.Context, resource string, cfg AuthConfig) (oauth2.TokenSource, error) {
	authority := strings.TrimRight(cfg.Authority, "/")
	if authority == "" {
		authority = DefaultAuthority
	}
	tenant := cfg.TenantID
	if tenant == "" {
		tenant = "organizations"
	}
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, tenant)

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{strings.TrimRight(resource, "/") + "/.default"}
	}

	switch cfg.Mode {
	case AuthClientCredentials:
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		}
		return cc.TokenSource(ctx), nil

	case AuthPassword:
		clientID := cfg.ClientID
		if clientID == "" {
			clientID = DefaultPublicClientID
		}
		oc := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: scopes,
		}
		tok, err := oc.PasswordCredentialsToken(ctx, cfg.Username, cfg.Password)
		if err != nil {
			return nil, &AuthError{Message: "password grant rejected", Cause: err}
		}
		return oc.TokenSource(ctx, tok), nil

	case AuthToken:
		if cfg.Token == "" {
			return nil, &AuthError{Message: "static token is empty"}
		}
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}), nil

	default:
		return nil, &AuthError{Message: fmt.Sprintf("unknown auth mode %q", cfg.Mode)}
	}
}
