package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pspman/internal/actions"
	"pspman/internal/config"
	"pspman/internal/database"
	"pspman/internal/lockfile"
	"pspman/internal/project"
	"pspman/internal/services"
	"pspman/internal/testsupport"
	"pspman/internal/workflow"
)

type cliEnv struct {
	cfg  *config.Config
	args []string
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	return &cliEnv{
		cfg: cfg,
		args: []string{
			"--config", filepath.Join(home, "missing.toml"),
			"--prefix", cfg.Paths.Prefix,
			"--clone-dir", cfg.Paths.CloneDir,
		},
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(append([]string{}, e.args...), args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunInstallsAndLists(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "--force-risk", "--stale", "-i", "https://example.com/acme/tool.git")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 succeeded, 0 failed") {
		t.Fatalf("summary missing:\n%s", out)
	}
	if !strings.Contains(out, "[OK]") || !strings.Contains(out, "tool") {
		t.Fatalf("status line missing:\n%s", out)
	}
	if _, err := os.Stat(env.cfg.LockPath()); !os.IsNotExist(err) {
		t.Fatalf("lock not released: %v", err)
	}

	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "tool") || !strings.Contains(out, "https://example.com/acme/tool.git") {
		t.Fatalf("list output:\n%s", out)
	}

	out, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "Succeeded") {
		t.Fatalf("history output:\n%s", out)
	}

	out, err = env.run(t, "history", "--project", "tool")
	if err != nil {
		t.Fatalf("history --project: %v", err)
	}
	if !strings.Contains(out, "Clone") {
		t.Fatalf("project history output:\n%s", out)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	env := setupCLI(t)
	lock, err := lockfile.Acquire(env.cfg.LockPath(), "pid:1 run:other")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, err = env.run(t, "--force-risk", "--stale")
	if !errors.Is(err, services.ErrLockContention) {
		t.Fatalf("expected lock contention, got %v", err)
	}
	if services.ExitCode(err) != services.ExitRefused {
		t.Fatalf("exit code = %d", services.ExitCode(err))
	}
}

func TestRunReportsFailedProjects(t *testing.T) {
	env := setupCLI(t)
	db := database.New(env.cfg.DatabasePath())
	db.Put(&project.Record{Name: "broken", URL: "https://example.com/broken.git"})
	if err := db.Save(); err != nil {
		t.Fatal(err)
	}
	testsupport.MakeWorkTree(t, env.cfg.Paths.CloneDir, "broken")

	// The stub git prints nothing, so the pull outcome cannot be classified.
	out, err := env.run(t, "--force-risk")
	if err == nil {
		t.Fatalf("expected failure\n%s", out)
	}
	var failed *failedProjectsError
	if !errors.As(err, &failed) || failed.failed != 1 {
		t.Fatalf("err = %v", err)
	}
	if services.ExitCode(err) != services.ExitFailure {
		t.Fatalf("exit code = %d", services.ExitCode(err))
	}
	if !strings.Contains(out, "[FAIL]") {
		t.Fatalf("failure line missing:\n%s", out)
	}
}

func TestUnlockRemovesStaleLockAndRestoresDatabase(t *testing.T) {
	env := setupCLI(t)
	if err := os.WriteFile(env.cfg.LockPath(), []byte("pid:99 run:crashed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.cfg.DatabasePath()+database.BackupSuffix, []byte("tool:\n  url: u\n  tag: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "unlock")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !strings.Contains(out, "pid:99 run:crashed") || !strings.Contains(out, "Restored") {
		t.Fatalf("unlock output:\n%s", out)
	}
	if _, err := os.Stat(env.cfg.LockPath()); !os.IsNotExist(err) {
		t.Fatalf("lock still present: %v", err)
	}
	if _, err := os.Stat(env.cfg.DatabasePath()); err != nil {
		t.Fatalf("database not restored: %v", err)
	}

	out, err = env.run(t, "unlock")
	if err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Fatalf("second unlock output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "pspman ") {
		t.Fatalf("version output = %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLI(t)
	target := filepath.Join(testsupport.BaseDir(env.cfg), "cfg", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("init output:\n%s", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--config", target, "config", "validate"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(buf.String(), "Configuration valid") {
		t.Fatalf("validate output:\n%s", buf.String())
	}
}

func TestRenderSummary(t *testing.T) {
	cases := []struct {
		succeeded, failed, interrupted, skipped int
		want                                    string
	}{
		{2, 1, 0, 0, "2 succeeded, 1 failed"},
		{0, 0, 3, 1, "0 succeeded, 0 failed, 3 interrupted, 1 skipped"},
	}
	for _, tc := range cases {
		got := renderSummary(workflow.Summary{
			Succeeded:   tc.succeeded,
			Failed:      tc.failed,
			Interrupted: tc.interrupted,
			Skipped:     tc.skipped,
		})
		if got != tc.want {
			t.Fatalf("renderSummary = %q, want %q", got, tc.want)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	ok := renderStatusLine(actions.Status{Project: "tool", Verb: "installed", Success: true}, false)
	if ok != "[OK]   tool: installed" {
		t.Fatalf("ok line = %q", ok)
	}
	bad := renderStatusLine(actions.Status{Project: "lib", Verb: "pip install failed", Detail: "exit 1"}, false)
	if bad != "[FAIL] lib: pip install failed (exit 1)" {
		t.Fatalf("fail line = %q", bad)
	}
}
