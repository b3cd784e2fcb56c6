package flows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/remote"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissingToken
	RefreshFailureRejected
	RefreshFailureTransport
	RefreshFailureMalformed
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Status  int

	Tokens TokenPair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Caller remote.Caller
	Path   string
	Expiry Expiry
}

// RunRefresh exchanges refreshToken for a new pair. When the backend omits a
// refresh token the old one is kept. Every failure is reported, never retried.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{
			Failure: RefreshFailureMissingToken,
			Err:     fmt.Errorf("refresh: no refresh token"),
		}
	}

	resp, err := deps.Caller.Call(ctx, http.MethodPost, deps.Path, nil, refreshToken)
	switch classify(resp, err) {
	case outcomeTransport:
		return RefreshResult{
			Failure: RefreshFailureTransport,
			Err:     transportError("refresh", resp, err),
			Status:  statusOf(resp),
		}
	case outcomeRejected:
		return RefreshResult{
			Failure: RefreshFailureRejected,
			Err:     fmt.Errorf("refresh rejected with status %d", resp.Status),
			Status:  resp.Status,
		}
	}

	var body remote.TokenResponse
	if err := remote.DecodeJSON(resp, &body); err != nil {
		return RefreshResult{Failure: RefreshFailureMalformed, Err: err, Status: resp.Status}
	}
	if body.AccessToken == "" {
		return RefreshResult{
			Failure: RefreshFailureMalformed,
			Err:     fmt.Errorf("%w: refresh response without access_token", remote.ErrMalformedResponse),
			Status:  resp.Status,
		}
	}

	next := body.RefreshToken
	if next == "" {
		next = refreshToken
	}

	return RefreshResult{
		Status: resp.Status,
		Tokens: TokenPair{
			AccessToken:          body.AccessToken,
			RefreshToken:         next,
			AccessTokenExpiresAt: deps.Expiry.ExpiresAt(body.AccessToken),
		},
	}
}
