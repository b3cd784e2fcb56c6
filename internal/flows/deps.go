package flows

import (
	"time"

	"github.com/MrEthical07/goSession/remote"
	"github.com/MrEthical07/goSession/tokenclaims"
)

// Deps groups flow dependency sets. The root session builds this once and
// delegates each operation to the matching flow implementation.
type Deps struct {
	Login        LoginDeps
	Bootstrap    BootstrapDeps
	SecondFactor SecondFactorDeps
	Refresh      RefreshDeps
}

// Paths holds backend endpoint paths. Roles must contain the {id} placeholder.
type Paths struct {
	Login              string
	VerifySecondFactor string
	Refresh            string
	Me                 string
	Roles              string
}

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
}

// Expiry configures how AccessTokenExpiresAt is computed at issuance.
type Expiry struct {
	Now                 func() time.Time
	AccessTokenLifetime time.Duration
	HonorServerExpiry   bool
}

// ExpiresAt returns now + lifetime, clamped to the token's exp claim when
// HonorServerExpiry is set and the claim is earlier.
func (e Expiry) ExpiresAt(accessToken string) time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	at := now().Add(e.AccessTokenLifetime)
	if e.HonorServerExpiry {
		at = tokenclaims.ExpiresBefore(accessToken, at)
	}
	return at
}

// callOutcome classifies a raw backend exchange.
type callOutcome int

const (
	outcomeOK callOutcome = iota
	outcomeRejected
	outcomeTransport
)

func classify(resp *remote.Response, err error) callOutcome {
	switch {
	case err != nil || resp == nil:
		return outcomeTransport
	case resp.OK():
		return outcomeOK
	case resp.ClientError():
		return outcomeRejected
	default:
		return outcomeTransport
	}
}

func statusOf(resp *remote.Response) int {
	if resp == nil {
		return 0
	}
	return resp.Status
}
