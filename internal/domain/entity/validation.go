package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// maxURLLength caps source and notice links.
const maxURLLength = 2048

// ValidateURL reports whether rawURL is an absolute http(s) link that the
// fetcher can request. All failures are ValidationErrors on field "url".
//
// No DNS lookup is performed: source URLs are operator-configured and
// notice links come from those same pages.
func ValidateURL(rawURL string) error {
	reason := urlProblem(rawURL)
	if reason == "" {
		return nil
	}
	return &ValidationError{Field: "url", Message: reason}
}

func urlProblem(rawURL string) string {
	switch {
	case strings.TrimSpace(rawURL) == "":
		return "URL is required"
	case len(rawURL) > maxURLLength:
		return fmt.Sprintf("url must not exceed %d characters", maxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "malformed URL"
	}
	// HTTPまたはHTTPSスキームのみ許可
	if u.Scheme != "http" && u.Scheme != "https" {
		return "URL must use http or https scheme"
	}
	if u.Hostname() == "" {
		return "URL must have a valid host"
	}
	return ""
}
