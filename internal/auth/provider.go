// Package auth exchanges the application's OneDrive credentials for a short-lived
// Microsoft Graph access token using the OAuth2 client-credentials grant.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"docsweep/internal/logger"
)

// Credentials identifies the application against the token endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Scope        string
	TokenURL     string
}

// Provider acquires a fresh token on every call; nothing is cached between runs.
type Provider struct {
	config     clientcredentials.Config
	httpClient *http.Client
	log        zerolog.Logger
}

// NewProvider creates a credential provider. httpClient may be nil to use the default.
func NewProvider(creds Credentials, httpClient *http.Client) *Provider {
	var scopes []string
	if creds.Scope != "" {
		scopes = []string{creds.Scope}
	}
	return &Provider{
		config: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       scopes,
			// Credentials travel in the form body, as Azure AD expects.
			AuthStyle: oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		log:        logger.WithComponent("auth"),
	}
}

// Acquire performs the client-credentials exchange and returns the bearer token.
func (p *Provider) Acquire(ctx context.Context) (string, error) {
	const op = "Acquire"

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.config.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			p.log.Error().
				Int("status", retrieveErr.Response.StatusCode).
				Str("error_code", retrieveErr.ErrorCode).
				Msg("Token endpoint rejected the client credentials")
		}
		return "", NewAuthError(op, err, p.config.TokenURL)
	}
	if token.AccessToken == "" {
		return "", NewAuthError(op, ErrMissingToken, p.config.TokenURL)
	}

	p.log.Debug().
		Time("expiry", token.Expiry).
		Msg("Access token acquired")

	return token.AccessToken, nil
}
