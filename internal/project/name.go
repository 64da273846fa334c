package project

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DeriveName extracts the project name from a remote locator: the last path
// component with trailing slashes and any ".git" suffix removed. Three forms
// are understood: scheme URLs (query and fragment are ignored), SCP-style
// user@host:path, and plain filesystem paths. A locator whose path part is
// empty, such as a bare scheme or host, is rejected.
func DeriveName(locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return "", &SourceLocatorError{Reason: "empty locator"}
	}
	if strings.ContainsAny(trimmed, " \t\r\n\x00") {
		return "", &SourceLocatorError{Locator: locator, Reason: "locator contains whitespace"}
	}

	path, err := locatorPath(trimmed)
	if err != nil {
		return "", &SourceLocatorError{Locator: locator, Reason: err.Error()}
	}

	name := path
	for {
		before := name
		name = strings.TrimRight(name, "/")
		name = strings.TrimSuffix(name, ".git")
		if name == before {
			break
		}
	}
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}

	switch name {
	case "", ".", "..":
		return "", &SourceLocatorError{Locator: locator, Reason: "no repository name in path"}
	}
	return name, nil
}

// locatorPath returns the repository path portion of a locator.
func locatorPath(locator string) (string, error) {
	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("unparsable URL: %w", err)
		}
		if strings.Trim(u.Path, "/") == "" {
			return "", errors.New("URL has no repository path")
		}
		return u.Path, nil
	}
	if host, path, ok := scpParts(locator); ok {
		if strings.Trim(path, "/") == "" {
			return "", fmt.Errorf("no repository path after %s:", host)
		}
		return path, nil
	}
	return locator, nil
}

// scpParts splits user@host:path. A colon after the first slash belongs to a
// filesystem path instead.
func scpParts(locator string) (host, path string, ok bool) {
	colon := strings.IndexByte(locator, ':')
	if colon <= 0 {
		return "", "", false
	}
	if slash := strings.IndexByte(locator, '/'); slash >= 0 && slash < colon {
		return "", "", false
	}
	return locator[:colon], locator[colon+1:], true
}
