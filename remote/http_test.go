package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCallerSendsJSONAndBearer(t *testing.T) {
	var (
		gotAuth      string
		gotType      string
		gotRequestID string
		gotBody      LoginRequest
		gotPath      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"access_token":"a","refresh_token":"r"}`))
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL+"/api", WithUserAgent("portal-test"))
	require.NoError(t, err)

	resp, err := caller.Call(context.Background(), http.MethodPost, "/auth/login", LoginRequest{Email: "a@x.com", Password: "pw"}, "tok")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "/api/auth/login", gotPath)
	assert.Equal(t, "a@x.com", gotBody.Email)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "expected generated uuid request id")

	var tokens TokenResponse
	require.NoError(t, DecodeJSON(resp, &tokens))
	assert.Equal(t, "a", tokens.AccessToken)
}

func TestHTTPCallerPropagatesRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL)
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-123")
	resp, err := caller.Call(ctx, http.MethodGet, "/auth/me", nil, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Equal(t, "req-123", got)
}

func TestHTTPCallerNonSuccessIsResponseNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL)
	require.NoError(t, err)

	resp, err := caller.Call(context.Background(), http.MethodPost, "/auth/login", nil, "")
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.True(t, resp.ClientError())
	assert.Equal(t, "Incorrect email or password", ErrorDetail(resp))
}

func TestHTTPCallerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	caller, err := NewHTTPCaller(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), http.MethodGet, "/slow", nil, "")
	require.Error(t, err)
}

func TestNewHTTPCallerRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "http://", "://bad"} {
		_, err := NewHTTPCaller(raw)
		assert.ErrorIs(t, err, ErrInvalidBaseURL, raw)
	}
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"usr_7","c":null}`), &out))
	assert.Equal(t, ID("42"), out.A)
	assert.Equal(t, ID("usr_7"), out.B)
	assert.Equal(t, ID(""), out.C)

	data, err := json.Marshal(VerifySecondFactorRequest{UserID: "42", Code: "123456"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":42,"code":"123456","is_backup_code":false}`, string(data))

	data, err = json.Marshal(VerifySecondFactorRequest{UserID: "usr_7", Code: "x", IsBackupCode: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"usr_7","code":"x","is_backup_code":true}`, string(data))

	for raw, want := range map[string]string{
		`"007"`:  `"007"`,
		`"+5"`:   `"+5"`,
		`"-0"`:   `"-0"`,
		`"-12"`:  `-12`,
		`" 42 "`: `42`,
	} {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(raw), &id), raw)
		data, err := json.Marshal(VerifySecondFactorRequest{UserID: id, Code: "123456"})
		require.NoError(t, err, raw)
		assert.JSONEq(t, `{"user_id":`+want+`,"code":"123456","is_backup_code":false}`, string(data), raw)
	}
}

func TestErrorDetailShapes(t *testing.T) {
	cases := map[string]string{
		`{"detail":"bad code"}`:                          "bad code",
		`{"detail":[{"msg":"field required"},{"msg":"x"}]}`: "field required; x",
		`{"message":"nope"}`:                             "nope",
		`{"error":"denied"}`:                             "denied",
		`not json`:                                       "",
	}
	for body, want := range cases {
		assert.Equal(t, want, ErrorDetail(&Response{Status: 400, Body: []byte(body)}), body)
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	var v TokenResponse
	assert.ErrorIs(t, DecodeJSON(&Response{Status: 200}, &v), ErrMalformedResponse)
	assert.ErrorIs(t, DecodeJSON(&Response{Status: 200, Body: []byte("{")}, &v), ErrMalformedResponse)
}

func TestExpandPathEscapesID(t *testing.T) {
	assert.Equal(t, "/users/42/roles", ExpandPath("/users/{id}/roles", "42"))
	assert.Equal(t, "/users/a%2Fb/roles", ExpandPath("/users/{id}/roles", "a/b"))
}
