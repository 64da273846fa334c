package project

import (
	"fmt"
	"strings"
)

// RequestSeparator splits the fields of an install request.
const RequestSeparator = "___"

// Request is a parsed install request: URL[___branch[___only]].
type Request struct {
	URL      string
	Branch   string
	PullOnly bool
}

var pullOnlyMarkers = map[string]struct{}{
	"only": {},
	"pull": {},
	"hold": {},
	"true": {},
}

// ParseRequest parses an install request argument.
func ParseRequest(raw string) (Request, error) {
	parts := strings.Split(strings.TrimSpace(raw), RequestSeparator)
	if len(parts) > 3 {
		return Request{}, &SourceLocatorError{Locator: raw, Reason: "too many ___ separated fields"}
	}
	req := Request{URL: strings.TrimSpace(parts[0])}
	if _, err := DeriveName(req.URL); err != nil {
		return Request{}, err
	}
	if len(parts) > 1 {
		req.Branch = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		marker := strings.ToLower(strings.TrimSpace(parts[2]))
		if _, ok := pullOnlyMarkers[marker]; !ok {
			return Request{}, &SourceLocatorError{
				Locator: raw,
				Reason:  fmt.Sprintf("unknown pull-only marker %q (want only, pull, hold or true)", parts[2]),
			}
		}
		req.PullOnly = true
	}
	return req, nil
}
