package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that raw is a well-formed absolute http or https URI.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrValidation)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("%w: url must start with http:// or https://", ErrValidation)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid url: %v", ErrValidation, err)
	}
	if u.Host == "" || u.Hostname() == "" {
		return fmt.Errorf("%w: url has no host", ErrValidation)
	}

	return nil
}
