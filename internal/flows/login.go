package flows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/remote"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRejected
	LoginFailureTransport
	LoginFailureMalformed
)

// LoginResult carries issued tokens, a pending second factor, or failure
// metadata. Message holds the backend's human-readable detail, if any.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Status  int
	Message string

	Tokens TokenPair

	RequiresSecondFactor bool
	PrincipalHintID      string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Caller remote.Caller
	Path   string
	Expiry Expiry
}

// RunLogin submits credentials and classifies the backend response.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	resp, err := deps.Caller.Call(ctx, http.MethodPost, deps.Path, remote.LoginRequest{
		Email:    email,
		Password: password,
	}, "")

	switch classify(resp, err) {
	case outcomeTransport:
		return LoginResult{
			Failure: LoginFailureTransport,
			Err:     transportError("login", resp, err),
			Status:  statusOf(resp),
			Message: remote.ErrorDetail(resp),
		}
	case outcomeRejected:
		return LoginResult{
			Failure: LoginFailureRejected,
			Err:     fmt.Errorf("login rejected with status %d", resp.Status),
			Status:  resp.Status,
			Message: remote.ErrorDetail(resp),
		}
	}

	var body remote.TokenResponse
	if err := remote.DecodeJSON(resp, &body); err != nil {
		return LoginResult{Failure: LoginFailureMalformed, Err: err, Status: resp.Status}
	}

	if body.RequiresTwoFactor {
		if body.UserID == "" {
			return LoginResult{
				Failure: LoginFailureMalformed,
				Err:     fmt.Errorf("%w: second factor required without user_id", remote.ErrMalformedResponse),
				Status:  resp.Status,
			}
		}
		return LoginResult{
			Status:               resp.Status,
			RequiresSecondFactor: true,
			PrincipalHintID:      body.UserID.String(),
		}
	}

	if body.AccessToken == "" || body.RefreshToken == "" {
		return LoginResult{
			Failure: LoginFailureMalformed,
			Err:     fmt.Errorf("%w: login response without token pair", remote.ErrMalformedResponse),
			Status:  resp.Status,
		}
	}

	return LoginResult{
		Status: resp.Status,
		Tokens: TokenPair{
			AccessToken:          body.AccessToken,
			RefreshToken:         body.RefreshToken,
			AccessTokenExpiresAt: deps.Expiry.ExpiresAt(body.AccessToken),
		},
	}
}

func transportError(op string, resp *remote.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: unexpected status %d", op, statusOf(resp))
}
