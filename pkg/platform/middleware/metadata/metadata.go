package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"pixkeys/pkg/requestcontext"
)

const unknownIP = "unknown"

// ClientMetadata puts the caller's address in the request context, where the
// logger picks it up. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest returns the caller's IP. The first X-Forwarded-For hop
// wins, then X-Real-IP, then the connection address. Header values that are
// not IP addresses are ignored.
func ClientIPFromRequest(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if ip, ok := parseIP(first); ok {
		return ip
	}
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if ip, ok := parseIP(r.RemoteAddr); ok {
		return ip
	}
	return unknownIP
}

func parseIP(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
