// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/stbportal/internal/domain"
)

const testDevice = "00:1A:79:00:00:01"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(baseURL, Options{Timeout: 2 * time.Second, RateLimit: 1000, RateLimitBurst: 1000})
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://portal.example", "http://portal.example/stalker_portal/server/load.php"},
		{"http://portal.example/c/", "http://portal.example/stalker_portal/server/load.php"},
		{"http://portal.example/stalker_portal", "http://portal.example/stalker_portal/server/load.php"},
		{"http://portal.example/portal.php", "http://portal.example/portal.php"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EndpointURL(tt.in), tt.in)
	}
}

func TestClassify(t *testing.T) {
	s := domain.AuthSession{DeviceID: testDevice, Token: "t"}

	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"unauthorized marker", 200, "Authorization failed.", ErrUnauthorized},
		{"unauthorized marker case-insensitive", 200, "  authorization FAILED", ErrUnauthorized},
		{"access denied marker", 200, "Access denied.", ErrAccessDenied},
		{"marker wins over status", 403, "Access denied", ErrAccessDenied},
		{"registration blocked shape", 200, `{"status":1,"msg":"m","block_msg":"device blocked"}`, ErrRegistrationBlocked},
		{"non-2xx", 404, "not found", ErrProtocol},
		{"not json", 200, "<html>", ErrProtocol},
		{"missing envelope", 200, `{"result":1}`, ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classify("http://p/load.php", s, tt.status, []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestClassify_UnauthorizedCarriesSession(t *testing.T) {
	s := domain.AuthSession{DeviceID: testDevice, Token: "stale"}
	_, err := classify("u", s, 200, []byte("Authorization failed"))

	var ue *UnauthorizedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "stale", ue.Session.Token)
}

func TestClassify_ProtocolErrorSnippet(t *testing.T) {
	body := make([]byte, 1024)
	for i := range body {
		body[i] = 'x'
	}
	_, err := classify("http://p/load.php", domain.AuthSession{}, 500, body)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.Status)
	assert.Len(t, pe.Body, bodySnippetLen)
}

func TestCall_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "itv", r.URL.Query().Get("type"))
		assert.Equal(t, "1-xml", r.URL.Query().Get("JsHttpRequest"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Cookie"), "mac=00%3A1A%3A79%3A00%3A00%3A01")
		_, _ = w.Write([]byte(`{"js":{"token":"abc"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/load.php")
	got, err := Call[handshakePayload](context.Background(), c, domain.AuthSession{DeviceID: testDevice, Token: "tok"}, Request{Type: "itv", Action: "x"})
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
}

func TestHandshake(t *testing.T) {
	m := NewMockServer()
	defer m.Close()

	c := newTestClient(t, m.URL)
	s, err := c.Handshake(context.Background(), testDevice)
	require.NoError(t, err)
	assert.Equal(t, m.Token(), s.Token)
	assert.Equal(t, testDevice, s.DeviceID)
	assert.True(t, s.Valid())
	assert.Equal(t, 1, m.Calls("stb/get_profile"))
}

func TestHandshake_RegistrationBlocked(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.SetBlocked("contact your provider")

	c := newTestClient(t, m.URL)
	_, err := c.Handshake(context.Background(), testDevice)

	var rb *RegistrationBlockedError
	require.ErrorAs(t, err, &rb)
	assert.Equal(t, "contact your provider", rb.Message)
	assert.True(t, IsFatal(err))
}

func TestHandshake_EmptyTokenIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"js":{"token":""}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Handshake(context.Background(), testDevice)
	assert.ErrorIs(t, err, ErrAuth)
	assert.True(t, IsPermanent(err))
}

func TestHandshake_OutageStaysRetryable(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.SetFailures("stb/handshake", 1)

	_, err := newTestClient(t, m.URL).Handshake(context.Background(), testDevice)
	require.ErrorIs(t, err, ErrProtocol)
	assert.False(t, IsPermanent(err))
}

func TestClient_BreakerOpensOnOutage(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.SetFailures("itv/get_genres", 100)

	c := NewClient(m.URL, Options{RateLimit: 1000, RateLimitBurst: 1000, BreakerThreshold: 2, BreakerReset: time.Hour})
	s := domain.AuthSession{DeviceID: testDevice, Token: m.Token()}
	for i := 0; i < 2; i++ {
		_, err := Call[wireList[wireGenre]](context.Background(), c, s, Request{Type: "itv", Action: "get_genres"})
		require.Error(t, err)
	}

	_, err := Call[wireList[wireGenre]](context.Background(), c, s, Request{Type: "itv", Action: "get_genres"})
	require.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, 2, m.Calls("itv/get_genres"), "open breaker must not reach the server")
}

func TestClient_MarkersDoNotTripBreaker(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.SetMarker("itv/get_genres", "Authorization failed")

	c := NewClient(m.URL, Options{RateLimit: 1000, RateLimitBurst: 1000, BreakerThreshold: 1, BreakerReset: time.Hour})
	s := domain.AuthSession{DeviceID: testDevice, Token: m.Token()}
	for i := 0; i < 3; i++ {
		_, err := Call[wireList[wireGenre]](context.Background(), c, s, Request{Type: "itv", Action: "get_genres"})
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, 3, m.Calls("itv/get_genres"))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(&UnauthorizedError{}))
	assert.True(t, IsPermanent(&AccessDeniedError{}))
	assert.True(t, IsPermanent(domain.ErrLinkUnavailable))
	assert.True(t, IsPermanent(context.Canceled))
	assert.False(t, IsPermanent(&ProtocolError{Status: 502}))
	assert.False(t, IsPermanent(errors.New("boom")))
	assert.False(t, IsPermanent(nil))
}
