package httpclient

import (
	"net/url"
	"strings"
)

// normalizeHost strips trailing slashes and checks the host is an absolute
// http(s) URL.
func normalizeHost(host string) (string, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return "", NewConfigurationError("host", "host is required", nil)
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", NewConfigurationError("host", "host is not a valid URL", err)
	}
	if !isHTTPScheme(u.Scheme) || u.Host == "" {
		return "", NewConfigurationError("host", "host must be an absolute http or https URL", nil)
	}
	return host, nil
}

// ResolveURL joins host and path with exactly one slash. Absolute http(s)
// paths are returned unchanged.
func ResolveURL(host, path string) string {
	if isAbsoluteURL(path) {
		return path
	}
	host = strings.TrimRight(host, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return host
	}
	return host + "/" + path
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isHTTPScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}
