package util

import (
	"net"
	"net/http"
	"strings"
)

// WithAllowedHosts rejects requests whose Host header is not in the
// allowlist. An empty allowlist (debug setups) admits every host.
// Entries starting with "." match the domain and all of its subdomains.
func WithAllowedHosts(hosts []string, next http.Handler) http.Handler {
	if len(hosts) == 0 {
		return next
	}
	exact := make(map[string]bool, len(hosts))
	var suffixes []string
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if strings.HasPrefix(h, ".") {
			suffixes = append(suffixes, h)
			exact[strings.TrimPrefix(h, ".")] = true
			continue
		}
		exact[h] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := strings.ToLower(requestHost(r))
		if exact[host] {
			next.ServeHTTP(w, r)
			return
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(host, suffix) {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "invalid host header", http.StatusBadRequest)
	})
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
