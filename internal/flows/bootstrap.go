package flows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/remote"
)

// BootstrapFailureKind classifies principal bootstrap failures.
type BootstrapFailureKind int

const (
	BootstrapFailureNone BootstrapFailureKind = iota
	BootstrapFailureMissingToken
	BootstrapFailureRejected
	BootstrapFailureTransport
	BootstrapFailureMalformed
)

// PrincipalRecord is the flow-local principal model.
type PrincipalRecord struct {
	ID    string
	Email string
	Name  string
	Roles []RoleRecord
}

// RoleRecord is the flow-local role assignment model.
type RoleRecord struct {
	Code        string
	Permissions []string
}

// BootstrapResult carries the fetched principal or failure metadata.
//
// RolesDegraded is set when the roles endpoint failed and the principal was
// built with an empty role list; RolesErr then holds the cause.
type BootstrapResult struct {
	Failure BootstrapFailureKind
	Err     error
	Status  int
	Message string

	Principal     PrincipalRecord
	RolesDegraded bool
	RolesErr      error
}

// BootstrapDeps captures bootstrap flow dependencies.
type BootstrapDeps struct {
	Caller    remote.Caller
	MePath    string
	RolesPath string
}

// RunBootstrap loads the principal behind accessToken, then its roles.
func RunBootstrap(ctx context.Context, accessToken string, deps BootstrapDeps) BootstrapResult {
	if accessToken == "" {
		return BootstrapResult{
			Failure: BootstrapFailureMissingToken,
			Err:     fmt.Errorf("bootstrap: empty access token"),
		}
	}

	resp, err := deps.Caller.Call(ctx, http.MethodGet, deps.MePath, nil, accessToken)
	switch classify(resp, err) {
	case outcomeTransport:
		return BootstrapResult{
			Failure: BootstrapFailureTransport,
			Err:     transportError("fetch principal", resp, err),
			Status:  statusOf(resp),
			Message: remote.ErrorDetail(resp),
		}
	case outcomeRejected:
		return BootstrapResult{
			Failure: BootstrapFailureRejected,
			Err:     fmt.Errorf("fetch principal rejected with status %d", resp.Status),
			Status:  resp.Status,
			Message: remote.ErrorDetail(resp),
		}
	}

	var me remote.MeResponse
	if err := remote.DecodeJSON(resp, &me); err != nil {
		return BootstrapResult{Failure: BootstrapFailureMalformed, Err: err, Status: resp.Status}
	}
	if me.ID == "" {
		return BootstrapResult{
			Failure: BootstrapFailureMalformed,
			Err:     fmt.Errorf("%w: principal without id", remote.ErrMalformedResponse),
			Status:  resp.Status,
		}
	}

	result := BootstrapResult{
		Status: resp.Status,
		Principal: PrincipalRecord{
			ID:    me.ID.String(),
			Email: me.Email,
			Name:  me.DisplayName(),
			Roles: []RoleRecord{},
		},
	}

	roles, err := fetchRoles(ctx, me.ID, accessToken, deps)
	if err != nil {
		result.RolesDegraded = true
		result.RolesErr = err
		return result
	}
	result.Principal.Roles = roles
	return result
}

func fetchRoles(ctx context.Context, id remote.ID, accessToken string, deps BootstrapDeps) ([]RoleRecord, error) {
	resp, err := deps.Caller.Call(ctx, http.MethodGet, remote.ExpandPath(deps.RolesPath, id), nil, accessToken)
	if classify(resp, err) != outcomeOK {
		return nil, transportError("fetch roles", resp, err)
	}

	var body []remote.RoleResponse
	if err := remote.DecodeJSON(resp, &body); err != nil {
		return nil, err
	}

	roles := make([]RoleRecord, 0, len(body))
	for _, r := range body {
		code := r.RoleCode()
		if code == "" {
			continue
		}
		roles = append(roles, RoleRecord{
			Code:        code,
			Permissions: append([]string(nil), r.Permissions...),
		})
	}
	return roles, nil
}
