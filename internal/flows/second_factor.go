package flows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/MrEthical07/goSession/remote"
)

// CodeKind selects how a second-factor code is normalized and verified.
type CodeKind int

const (
	CodeTOTP CodeKind = iota
	CodeBackup
)

const (
	DefaultTOTPDigits          = 6
	DefaultBackupCodeMaxLength = 20
)

// ErrCodeFormat is returned for codes rejected before any network call.
var ErrCodeFormat = errors.New("second factor code has invalid format")

// SecondFactorFailureKind classifies second-factor flow failures.
type SecondFactorFailureKind int

const (
	SecondFactorFailureNone SecondFactorFailureKind = iota
	SecondFactorFailureInvalidCode
	SecondFactorFailureRejected
	SecondFactorFailureTransport
	SecondFactorFailureMalformed
)

// SecondFactorResult carries the issued token pair or failure metadata.
type SecondFactorResult struct {
	Failure SecondFactorFailureKind
	Err     error
	Status  int
	Message string

	Tokens TokenPair
}

// SecondFactorDeps captures second-factor flow dependencies.
type SecondFactorDeps struct {
	Caller              remote.Caller
	Path                string
	TOTPDigits          int
	BackupCodeMaxLength int
	Expiry              Expiry
}

// NormalizeCode applies the input rules for kind and reports whether the
// result is acceptable.
//
// TOTP codes keep only digits, truncated to digits characters, and must be
// exactly that long. Backup codes are trimmed and capped at maxBackup runes,
// and must not be empty.
func NormalizeCode(code string, kind CodeKind, digits, maxBackup int) (string, bool) {
	if digits <= 0 {
		digits = DefaultTOTPDigits
	}
	if maxBackup <= 0 {
		maxBackup = DefaultBackupCodeMaxLength
	}

	switch kind {
	case CodeTOTP:
		var b strings.Builder
		for _, r := range code {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
				if b.Len() == digits {
					break
				}
			}
		}
		out := b.String()
		return out, len(out) == digits
	case CodeBackup:
		out := strings.TrimFunc(code, unicode.IsSpace)
		if runes := []rune(out); len(runes) > maxBackup {
			out = string(runes[:maxBackup])
		}
		return out, out != ""
	default:
		return "", false
	}
}

// RunVerifySecondFactor normalizes code and submits it for principalHintID.
func RunVerifySecondFactor(ctx context.Context, principalHintID, code string, kind CodeKind, deps SecondFactorDeps) SecondFactorResult {
	normalized, ok := NormalizeCode(code, kind, deps.TOTPDigits, deps.BackupCodeMaxLength)
	if !ok {
		return SecondFactorResult{Failure: SecondFactorFailureInvalidCode, Err: ErrCodeFormat}
	}

	resp, err := deps.Caller.Call(ctx, http.MethodPost, deps.Path, remote.VerifySecondFactorRequest{
		UserID:       remote.ID(principalHintID),
		Code:         normalized,
		IsBackupCode: kind == CodeBackup,
	}, "")

	switch classify(resp, err) {
	case outcomeTransport:
		return SecondFactorResult{
			Failure: SecondFactorFailureTransport,
			Err:     transportError("verify second factor", resp, err),
			Status:  statusOf(resp),
			Message: remote.ErrorDetail(resp),
		}
	case outcomeRejected:
		return SecondFactorResult{
			Failure: SecondFactorFailureRejected,
			Err:     fmt.Errorf("second factor rejected with status %d", resp.Status),
			Status:  resp.Status,
			Message: remote.ErrorDetail(resp),
		}
	}

	var body remote.TokenResponse
	if err := remote.DecodeJSON(resp, &body); err != nil {
		return SecondFactorResult{Failure: SecondFactorFailureMalformed, Err: err, Status: resp.Status}
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return SecondFactorResult{
			Failure: SecondFactorFailureMalformed,
			Err:     fmt.Errorf("%w: verification response without token pair", remote.ErrMalformedResponse),
			Status:  resp.Status,
		}
	}

	return SecondFactorResult{
		Status: resp.Status,
		Tokens: TokenPair{
			AccessToken:          body.AccessToken,
			RefreshToken:         body.RefreshToken,
			AccessTokenExpiresAt: deps.Expiry.ExpiresAt(body.AccessToken),
		},
	}
}
