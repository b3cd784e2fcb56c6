package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedResponse marks a 2xx body that could not be decoded.
var ErrMalformedResponse = errors.New("malformed response body")

// ID is a backend identifier that may arrive as a JSON number or string.
// It is kept in its decimal/string form.
type ID string

// UnmarshalJSON accepts 42, "42" and "usr_42".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits canonical integers as numbers so they round-trip to
// backends that model ids as integers. Anything else, including "007" and
// "+5", stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by login, second-factor verification and refresh.
// Login sets RequiresTwoFactor and UserID instead of tokens when a second
// factor is pending.
type TokenResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	TokenType         string `json:"token_type,omitempty"`
	RequiresTwoFactor bool   `json:"requires_two_factor,omitempty"`
	UserID            ID     `json:"user_id,omitempty"`
}

// VerifySecondFactorRequest is the body of POST /auth/2fa/verify.
type VerifySecondFactorRequest struct {
	UserID       ID     `json:"user_id"`
	Code         string `json:"code"`
	IsBackupCode bool   `json:"is_backup_code"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	ID       ID     `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// DisplayName prefers name over full_name.
func (m MeResponse) DisplayName() string {
	if strings.TrimSpace(m.Name) != "" {
		return strings.TrimSpace(m.Name)
	}
	return strings.TrimSpace(m.FullName)
}

// RoleResponse is one element of GET /users/{id}/roles.
type RoleResponse struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Code        string   `json:"code,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// RoleCode returns the code used for gating: code when present, else name.
func (r RoleResponse) RoleCode() string {
	if c := strings.TrimSpace(r.Code); c != "" {
		return c
	}
	return strings.TrimSpace(r.Name)
}

// DecodeJSON decodes a response body into v. Empty or invalid bodies are
// reported as [ErrMalformedResponse].
func DecodeJSON(resp *Response, v any) error {
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// ErrorDetail extracts the human-readable message from an error body.
// It understands {"detail": "..."}, {"detail": [{"msg": "..."}]},
// {"message": "..."} and {"error": "..."}.
func ErrorDetail(resp *Response) string {
	if resp == nil || len(resp.Body) == 0 {
		return ""
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if m := strings.TrimSpace(item.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	return strings.TrimSpace(payload.Error)
}

// ExpandPath substitutes {id} in a path template with the escaped id.
func ExpandPath(template string, id ID) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(string(id)))
}
