package goSession

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

// Token implements oauth2.TokenSource. Expiry is reported at the start of
// the refresh buffer so oauth2 wrappers ask again before the session would.
func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	tokens, err := ts.session.token(ts.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
		Expiry:      tokens.AccessTokenExpiresAt.Add(-ts.session.config.Tokens.RefreshBuffer),
	}, nil
}

// TokenSource adapts the session to oauth2.TokenSource. Every Token call
// goes through AccessToken, so refreshes stay de-duplicated with direct
// callers. ctx bounds each refresh wait.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	if ctx == nil {
		ctx = context.Background()
	}
	return &sessionTokenSource{ctx: ctx, session: s}
}

// HTTPClient returns a client that authorizes every request with the
// session's current access token.
func (s *Session) HTTPClient(ctx context.Context) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: s.TokenSource(ctx),
		},
	}
}
