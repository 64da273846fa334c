package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external tool pspman relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// BuildTools lists the version control and build tools used by the install
// backends. Only git is mandatory; a missing build tool fails the projects
// that need it.
func BuildTools(python string) []Requirement {
	if strings.TrimSpace(python) == "" {
		python = "python3"
	}
	return []Requirement{
		{Name: "git", Command: "git", Description: "Required for cloning and pulling projects"},
		{Name: "make", Command: "make", Description: "Builds Makefile and configure projects", Optional: true},
		{Name: "python", Command: python, Description: "Installs setup.py projects through pip", Optional: true},
		{Name: "meson", Command: "meson", Description: "Configures meson.build projects", Optional: true},
		{Name: "ninja", Command: "ninja", Description: "Builds meson projects", Optional: true},
		{Name: "go", Command: "go", Description: "Installs Go module projects", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

// MissingOptional returns the unavailable optional entries.
func MissingOptional(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
