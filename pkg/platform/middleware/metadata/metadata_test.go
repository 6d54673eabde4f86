package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"healthdir/pkg/requestcontext"
)

func Test_ClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "x-forwarded-for single ip",
			remoteAddr: "10.0.0.1:52100",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:52100",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:52100",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "x-forwarded-for beats x-real-ip",
			remoteAddr: "10.0.0.1:52100",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7",
				"X-Real-IP":       "198.51.100.4",
			},
			want: "203.0.113.7",
		},
		{
			name:       "remote addr ipv4",
			remoteAddr: "192.0.2.9:41832",
			want:       "192.0.2.9",
		},
		{
			name:       "remote addr ipv6",
			remoteAddr: "[::1]:41832",
			want:       "[::1]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIPFromRequest(req))
		})
	}
}

func Test_ClientApplication(t *testing.T) {
	assert.Equal(t, "unknown", ClientApplication(""))

	firefox := ClientApplication("Mozilla/5.0 (X11; Linux x86_64; rv:131.0) Gecko/20100101 Firefox/131.0")
	assert.True(t, strings.HasPrefix(firefox, "Firefox/"), "got %q", firefox)

	// Unparseable agents pass through, bounded.
	assert.Equal(t, "my-internal-client/2.4", ClientApplication("my-internal-client/2.4"))
	long := strings.Repeat("x", 100)
	assert.Len(t, ClientApplication(long), 64)
}

func Test_ClientMetadata_PopulatesContext(t *testing.T) {
	var gotIP, gotUA, gotApp string
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
		gotApp = requestcontext.ClientApplication(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.RemoteAddr = "192.0.2.9:41832"
	req.Header.Set("User-Agent", "curl/8.5.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.9", gotIP)
	assert.Equal(t, "curl/8.5.0", gotUA)
	assert.NotEmpty(t, gotApp)
}
