package myhttp

import (
	"fmt"
	"mime"
	"net/http"
)

func HostnameWithScheme(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// IsJSON tells whether the client posted or accepts json instead of an html form.
func IsJSON(r *http.Request) bool {
	return isMediaType(r.Header.Get("Content-Type"), "application/json") ||
		isMediaType(r.Header.Get("Accept"), "application/json")
}

func isMediaType(header string, expected string) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	return err == nil && mediaType == expected
}
