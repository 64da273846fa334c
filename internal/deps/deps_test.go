package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("blank command = %#v", results[2])
	}
}

func TestBuildToolsOnlyGitRequired(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	statuses := CheckBinaries(BuildTools(""))
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "git" {
		t.Fatalf("missing required = %#v", missing)
	}
	if optional := MissingOptional(statuses); len(optional) != len(statuses)-1 {
		t.Fatalf("missing optional = %#v", optional)
	}
	for _, s := range statuses {
		if s.Name == "python" && s.Command != "python3" {
			t.Fatalf("default python command = %q", s.Command)
		}
	}
}

func TestBuildToolsCustomPython(t *testing.T) {
	for _, req := range BuildTools("python3.12") {
		if req.Name == "python" && req.Command != "python3.12" {
			t.Fatalf("python command = %q", req.Command)
		}
	}
}
