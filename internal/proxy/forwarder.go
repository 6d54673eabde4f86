// Package proxy forwards allowed requests to the backend service resolved
// for the gateway, relaying the backend response unchanged apart from the
// headers the gateway owns.
package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"healthdir/internal/identity"
	"healthdir/pkg/platform/httputil"
	"healthdir/pkg/platform/middleware/correlation"
	"healthdir/pkg/requestcontext"
)

// HeaderUserID carries the authenticated caller's user id to the backend for
// its own audit trail. The inbound value is informational at best and always
// replaced: authoritative identity comes from the validated principal.
const HeaderUserID = "X-User-Id"

// hopHeaders are connection-scoped and must not be forwarded (RFC 9110 section 7.6.1).
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder relays requests to a single backend base URL. Route resolution
// across backends is the reverse proxy's job upstream of this process; each
// gateway instance fronts exactly one backend.
type Forwarder struct {
	backend *url.URL
	client  *http.Client
	logger  *slog.Logger
}

// New builds a forwarder for the given backend base URL.
func New(backend *url.URL, client *http.Client, logger *slog.Logger) *Forwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Forwarder{backend: backend, client: client, logger: logger}
}

// ServeHTTP forwards the request and relays the backend response.
// Backend connection failures yield 502, timeouts 504; both still carry the
// gateway's correlation headers because those are stamped before this handler
// runs.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target := *f.backend
	target.Path = singleJoin(f.backend.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	outbound, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to build backend request", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "bad_gateway", "Backend request could not be constructed")
		return
	}
	outbound.ContentLength = r.ContentLength

	copyHeaders(outbound.Header, r.Header)
	stripHeaders(outbound.Header)

	// Context headers for the backend's audit trail.
	outbound.Header.Set(correlation.HeaderCorrelationID, requestcontext.CorrelationID(ctx))
	outbound.Header.Set(correlation.HeaderGatewaySource, requestcontext.GatewaySource(ctx))
	if principal := identity.FromContext(ctx); !principal.IsAnonymous() {
		outbound.Header.Set(HeaderUserID, principal.UserID)
	} else {
		outbound.Header.Del(HeaderUserID)
	}

	resp, err := f.client.Do(outbound)
	if err != nil {
		status, code, desc := classifyForwardError(err)
		f.logger.WarnContext(ctx, "backend forward failed",
			"error", err,
			"backend", f.backend.Host,
			"status", status,
			"correlation_id", requestcontext.CorrelationID(ctx),
		)
		httputil.WriteError(w, status, code, desc)
		return
	}
	defer resp.Body.Close()

	relayHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Status already sent; nothing to repair. Usually a client disconnect.
		f.logger.DebugContext(ctx, "backend response relay interrupted", "error", err)
	}
}

// classifyForwardError maps transport failures onto the gateway's upstream
// error taxonomy: timeouts are 504, everything else 502.
func classifyForwardError(err error) (status int, code, desc string) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout, "upstream_timeout", "Backend did not respond in time"
	default:
		return http.StatusBadGateway, "upstream_unavailable", "Backend is unavailable"
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func stripHeaders(h http.Header) {
	for _, key := range hopHeaders {
		h.Del(key)
	}
	// The gateway owns these; inbound values are untrusted.
	h.Del(HeaderUserID)
	h.Del(correlation.HeaderGatewaySource)
}

// relayHeaders copies backend response headers without clobbering the
// gateway-owned headers already stamped on the response.
func relayHeaders(dst, src http.Header) {
	for key, values := range src {
		if key == correlation.HeaderCorrelationID || key == correlation.HeaderGatewaySource {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	for _, key := range hopHeaders {
		dst.Del(key)
	}
}

func singleJoin(a, b string) string {
	switch {
	case a == "":
		return b
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	default:
		return a + b
	}
}
