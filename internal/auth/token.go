package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultScope is the Graph scope requested by the client-credential flow.
const DefaultScope = "https://graph.microsoft.com/.default"

// Options selects how the bearer token is obtained. A static token wins
// over client credentials.
type Options struct {
	AuthorityURL string // e.g. https://login.microsoftonline.com
	TenantID     string
	ClientID     string
	ClientSecret string
	StaticToken  string
	Scopes       []string
}

// TokenSource returns a token source and the identity to log it under.
// The migrator treats tokens as opaque: an expired token surfaces as a
// failed remote call.
func TokenSource(ctx context.Context, opts Options) (oauth2.TokenSource, string, error) {
	if opts.StaticToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.StaticToken, TokenType: "Bearer"}), "static-token", nil
	}
	if opts.TenantID == "" || opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, "", errors.New("tenant id, client id and client secret are required when no token is given")
	}
	authority := opts.AuthorityURL
	if authority == "" {
		authority = "https://login.microsoftonline.com"
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	cfg := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, opts.TenantID),
		Scopes:       scopes,
	}
	return oauth2.ReuseTokenSource(nil, cfg.TokenSource(ctx)), "app:" + opts.ClientID, nil
}
