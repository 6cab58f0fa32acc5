package handler

import (
	"net"
	"strings"
)

// isAllowedOrigin reports whether a browser at origin may open a conversion
// socket. Requests without an Origin header come from non-browser clients
// and are allowed. An empty allow list admits every origin.
func isAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	if len(allowed) == 0 {
		return true
	}

	if isLoopback(normalized) {
		return true
	}

	for _, entry := range allowed {
		candidate := strings.TrimSpace(entry)
		if candidate == "" {
			continue
		}
		if candidate == origin || candidate == normalized {
			return true
		}
		if strings.TrimPrefix(candidate, "http://") == normalized || strings.TrimPrefix(candidate, "https://") == normalized {
			return true
		}
	}

	return false
}

// isLoopback reports whether hostport names localhost or 127.0.0.1, with or
// without a port.
func isLoopback(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1"
}
