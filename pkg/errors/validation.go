package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// maxTitleLength bounds flow titles, which end up in asset file names.
const maxTitleLength = 200

// ValidateTitle checks a flow title: not blank, at most 200 characters and
// free of control characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return New(ErrCodeInvalidInput, "flow title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return New(ErrCodeInvalidInput, "flow title too long (max %d characters)", maxTitleLength)
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "flow title contains control characters")
		}
	}
	return nil
}

// ValidateFileName checks that name is a plain base name that stays inside
// the directory it is written to.
//
// Rejected:
//   - empty names
//   - path separators and traversal sequences
//   - hidden files (leading dot)
//   - null bytes and control characters
func ValidateFileName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "file name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return New(ErrCodeInvalidInput, "file name %q cannot contain path separators", name)
	}
	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidInput, "file name %q cannot be hidden", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "file name contains invalid characters")
		}
	}
	return nil
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "parse URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL %q must use http or https scheme", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", rawURL)
	}
	return nil
}
