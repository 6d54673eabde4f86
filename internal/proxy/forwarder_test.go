package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"healthdir/internal/identity"
	"healthdir/pkg/platform/middleware/correlation"
	"healthdir/pkg/requestcontext"
)

type ForwarderSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestForwarderSuite(t *testing.T) {
	suite.Run(t, new(ForwarderSuite))
}

func (s *ForwarderSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ForwarderSuite) forwarder(backendURL string, client *http.Client) *Forwarder {
	parsed, err := url.Parse(backendURL)
	s.Require().NoError(err)
	return New(parsed, client, s.logger)
}

func (s *ForwarderSuite) request(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	ctx := requestcontext.WithCorrelationID(req.Context(), "corr-test")
	ctx = requestcontext.WithGatewaySource(ctx, "healthdir-public")
	return req.WithContext(ctx)
}

func (s *ForwarderSuite) TestRelaysRequestAndResponse() {
	var captured *http.Request
	var capturedBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		b, _ := io.ReadAll(r.Body)
		capturedBody = string(b)
		w.Header().Set("X-Backend-Version", "1.4.2")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"svc-1"}`))
	}))
	defer backend.Close()

	f := s.forwarder(backend.URL, backend.Client())
	req := s.request(http.MethodPost, "/api/services?page=2", strings.NewReader(`{"name":"clinic"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	f.ServeHTTP(rec, req)

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal(`{"id":"svc-1"}`, rec.Body.String())
	s.Equal("1.4.2", rec.Header().Get("X-Backend-Version"))

	s.Require().NotNil(captured)
	s.Equal("/api/services", captured.URL.Path)
	s.Equal("page=2", captured.URL.RawQuery)
	s.Equal(`{"name":"clinic"}`, capturedBody)
	s.Equal("application/json", captured.Header.Get("Content-Type"))
	s.Equal("corr-test", captured.Header.Get(correlation.HeaderCorrelationID))
	s.Equal("healthdir-public", captured.Header.Get(correlation.HeaderGatewaySource))
}

func (s *ForwarderSuite) TestInjectsUserIDForAuthenticatedCaller() {
	var gotUserID string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Header.Get(HeaderUserID)
	}))
	defer backend.Close()

	f := s.forwarder(backend.URL, backend.Client())

	req := s.request(http.MethodGet, "/api/services", nil)
	ctx := identity.WithPrincipal(req.Context(), identity.Principal{UserID: "user-7", Authenticated: true})
	f.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))
	s.Equal("user-7", gotUserID)
}

func (s *ForwarderSuite) TestStripsSpoofedIdentityHeaders() {
	var got http.Header
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer backend.Close()

	f := s.forwarder(backend.URL, backend.Client())
	req := s.request(http.MethodGet, "/api/services", nil)
	req.Header.Set(HeaderUserID, "attacker-chosen")
	req.Header.Set(correlation.HeaderGatewaySource, "spoofed-gateway")
	req.Header.Set("Proxy-Authorization", "Basic abc")

	f.ServeHTTP(httptest.NewRecorder(), req)

	s.Require().NotNil(got)
	s.Empty(got.Get(HeaderUserID), "anonymous caller must not smuggle a user id")
	s.Equal("healthdir-public", got.Get(correlation.HeaderGatewaySource))
	s.Empty(got.Get("Proxy-Authorization"))
}

func (s *ForwarderSuite) TestUnreachableBackendIs502() {
	// Port 1 is never listening locally, so the dial is refused immediately.
	f := s.forwarder("http://127.0.0.1:1", &http.Client{Timeout: 2 * time.Second})
	rec := httptest.NewRecorder()

	f.ServeHTTP(rec, s.request(http.MethodGet, "/api/services", nil))

	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), "upstream_unavailable")
}

func (s *ForwarderSuite) TestSlowBackendIs504() {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer backend.Close()

	f := s.forwarder(backend.URL, &http.Client{Timeout: 50 * time.Millisecond})
	rec := httptest.NewRecorder()

	f.ServeHTTP(rec, s.request(http.MethodGet, "/api/services", nil))

	s.Equal(http.StatusGatewayTimeout, rec.Code)
	s.Contains(rec.Body.String(), "upstream_timeout")
}

func Test_singleJoin(t *testing.T) {
	require.Equal(t, "/api/services", singleJoin("", "/api/services"))
	require.Equal(t, "/base/api", singleJoin("/base/", "/api"))
	require.Equal(t, "/base/api", singleJoin("/base", "/api"))
	require.Equal(t, "base/api", singleJoin("base", "api"))
}
