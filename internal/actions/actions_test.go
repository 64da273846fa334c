package actions_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pspman/internal/actions"
	"pspman/internal/project"
	"pspman/internal/shell"
	"pspman/internal/testsupport"
)

type recordingReporter struct {
	mu    sync.Mutex
	lines []actions.Status
}

func (r *recordingReporter) Report(s actions.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, s)
}

func TestCloneMakeProjectThenInstall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		if cmd.Name == "git" && cmd.Args[0] == "clone" {
			dest := cmd.Args[len(cmd.Args)-1]
			testsupport.MakeWorkTree(t, filepath.Dir(dest), filepath.Base(dest), "Makefile", "configure")
		}
		return shell.Output{}, nil
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)

	rec, err := project.NewRecord("https://example.com/acme/tool.git", "")
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	rec.Tag.MarkPending(project.PendingPull)

	res := exec.Clone(context.Background(), rec)
	if !res.Success || !res.Touch {
		t.Fatalf("clone result = %+v", res)
	}
	if res.Tag.Pending != project.PendingInstall {
		t.Fatalf("pending after clone = %s, want install", res.Tag.Pending)
	}
	if res.Tag.Backend != project.BackendMake {
		t.Fatalf("backend = %s, want make", res.Tag.Backend)
	}
	if got := res.Tag.Encode(); got&0x02 == 0 || got>>4 != int(project.BackendMake) {
		t.Fatalf("encoded tag %#x lacks install bit or make nibble", got)
	}

	rec.Tag = res.Tag
	res = exec.Install(context.Background(), rec)
	if !res.Success || !res.Touch {
		t.Fatalf("install result = %+v", res)
	}
	if res.Tag.Pending != project.PendingNone {
		t.Fatalf("pending after install = %s", res.Tag.Pending)
	}

	lines := runner.CommandLines()
	want := []string{
		"./configure --prefix=" + cfg.Paths.Prefix,
		"make -C " + rec.Path(cfg.Paths.CloneDir),
		"make -C " + rec.Path(cfg.Paths.CloneDir) + " install PREFIX=" + cfg.Paths.Prefix,
	}
	if len(lines) != 4 {
		t.Fatalf("commands = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "git clone --recurse-submodules https://example.com/acme/tool.git ") {
		t.Fatalf("clone command = %q", lines[0])
	}
	for i, w := range want {
		if lines[i+1] != w {
			t.Fatalf("command %d = %q, want %q", i+1, lines[i+1], w)
		}
	}
}

func TestCloneFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		return testsupport.Failure(cmd, 128, "fatal: repository not found")
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
	rec := &project.Record{Name: "missing", URL: "https://example.com/missing"}

	res := exec.Clone(context.Background(), rec)
	if res.Success {
		t.Fatal("expected clone failure")
	}
	if !res.Tag.Failed() || res.Tag.Outcome.Step != project.StepClone {
		t.Fatalf("tag = %+v", res.Tag)
	}
	if res.Message != "FAILED cloning source of missing" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestCloneWithoutURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)

	res := exec.Clone(context.Background(), &project.Record{Name: "orphan"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(runner.Calls()) != 0 {
		t.Fatalf("no command should run, got %q", runner.CommandLines())
	}
}

func TestClonePullOnlySkipsInstall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		dest := cmd.Args[len(cmd.Args)-1]
		testsupport.MakeWorkTree(t, filepath.Dir(dest), filepath.Base(dest), "setup.py")
		return shell.Output{}, nil
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
	rec := &project.Record{Name: "lib", URL: "https://example.com/lib", PullOnly: true, Branch: "dev"}

	res := exec.Clone(context.Background(), rec)
	if !res.Success {
		t.Fatalf("clone failed: %+v", res)
	}
	if res.Tag.Pending != project.PendingNone {
		t.Fatalf("pull-only project should not be marked for install, got %s", res.Tag.Pending)
	}
	if res.Tag.Backend != project.BackendPip {
		t.Fatalf("backend = %s", res.Tag.Backend)
	}
	if line := runner.CommandLines()[0]; !strings.Contains(line, "--branch dev") {
		t.Fatalf("clone command %q lacks branch", line)
	}
}

func pullRunner(before, after, stdout string) *testsupport.FakeRunner {
	var mu sync.Mutex
	revs := []string{before, after}
	return &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		switch cmd.Args[0] {
		case "rev-parse":
			mu.Lock()
			defer mu.Unlock()
			rev := revs[0]
			revs = revs[1:]
			if rev == "" {
				return shell.Output{ExitCode: 128}, nil
			}
			return shell.Output{Stdout: rev + "\n"}, nil
		case "pull":
			return shell.Output{Stdout: stdout}, nil
		}
		return shell.Output{}, nil
	}}
}

func TestUpdateAlreadyUpToDate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := pullRunner("abc123", "abc123", "Already up to date.\n")
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
	rec := &project.Record{Name: "tool", URL: "u", Tag: project.Tag{Pending: project.PendingPull, Backend: project.BackendMake}}

	res := exec.Update(context.Background(), rec)
	if !res.Success {
		t.Fatalf("update failed: %+v", res)
	}
	if res.Touch {
		t.Fatal("an up-to-date pull must not stamp the record")
	}
	if res.Tag.Pending != project.PendingNone {
		t.Fatalf("pending = %s, want none", res.Tag.Pending)
	}
	if res.Tag.Outcome.Changed {
		t.Fatal("outcome should not be marked changed")
	}
	if res.Message != "tool is up to date" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestUpdateNewRevisionMarksInstall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := pullRunner("abc123", "def456", "Updating abc123..def456\nFast-forward\n")
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
	rec := &project.Record{Name: "tool", URL: "u", Tag: project.Tag{Pending: project.PendingPull, Backend: project.BackendGo}}

	res := exec.Update(context.Background(), rec)
	if !res.Success || !res.Touch {
		t.Fatalf("update result = %+v", res)
	}
	if res.Tag.Pending != project.PendingInstall {
		t.Fatalf("pending = %s, want install", res.Tag.Pending)
	}
}

func TestUpdateFallsBackToOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, pullRunner("", "", "Already up-to-date.\n"))
	res := exec.Update(context.Background(), &project.Record{Name: "old", Tag: project.Tag{Pending: project.PendingPull}})
	if !res.Success || res.Tag.Outcome.Changed {
		t.Fatalf("result = %+v", res)
	}

	exec = actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, pullRunner("", "", "something unexpected\n"))
	res = exec.Update(context.Background(), &project.Record{Name: "odd", Tag: project.Tag{Pending: project.PendingPull}})
	if res.Success {
		t.Fatal("unrecognised output should fail the pull")
	}
}

func TestUpdateRetriesFailedInstall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, pullRunner("abc", "abc", ""))
	tag := project.Tag{Backend: project.BackendMake}
	tag.MarkFailed(project.StepInstall, "make exited 2")
	tag.MarkPending(project.PendingPull)

	res := exec.Update(context.Background(), &project.Record{Name: "flaky", Tag: tag})
	if !res.Success {
		t.Fatalf("update failed: %+v", res)
	}
	if res.Tag.Pending != project.PendingInstall {
		t.Fatalf("failed install should be retried, pending = %s", res.Tag.Pending)
	}
}

func TestUpdatePullFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		if cmd.Args[0] == "pull" {
			return testsupport.Failure(cmd, 1, "fatal: unable to access remote\n")
		}
		return shell.Output{Stdout: "abc\n"}, nil
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
	res := exec.Update(context.Background(), &project.Record{Name: "net", Tag: project.Tag{Pending: project.PendingPull}})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Tag.Outcome.Reason, "unable to access remote") {
		t.Fatalf("reason = %q", res.Tag.Outcome.Reason)
	}
	if res.Tag.Pending != project.PendingNone {
		t.Fatalf("failure should clear pending, got %s", res.Tag.Pending)
	}
}

func TestInstallSkipsWhenNotPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)

	res := exec.Install(context.Background(), &project.Record{Name: "quiet", Tag: project.Tag{Backend: project.BackendMake}})
	if !res.Success || res.Touch {
		t.Fatalf("result = %+v", res)
	}
	if res.Message != "Not trying to install quiet" {
		t.Fatalf("message = %q", res.Message)
	}

	res = exec.Install(context.Background(), &project.Record{Name: "docs", Tag: project.Tag{Pending: project.PendingInstall}})
	if !res.Success || res.Tag.Pending != project.PendingNone {
		t.Fatalf("backend-less result = %+v", res)
	}
	if len(runner.Calls()) != 0 {
		t.Fatalf("unexpected commands %q", runner.CommandLines())
	}
}

func TestInstallBackends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cases := []struct {
		name    string
		backend project.Backend
		markers []string
		want    []string
	}{
		{
			name:    "pip",
			backend: project.BackendPip,
			markers: []string{"setup.py", "requirements.txt"},
			want:    []string{"python3 -m pip install --user -U -r", "python3 -m pip install --user -U "},
		},
		{
			name:    "meson",
			backend: project.BackendMeson,
			markers: []string{"meson.build"},
			want:    []string{"meson setup --wipe --buildtype=release --prefix=" + cfg.Paths.Prefix + " -Db_lto=true", "ninja -C", "ninja -C"},
		},
		{
			name:    "go",
			backend: project.BackendGo,
			markers: []string{"main.go"},
			want:    []string{"go install ."},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, tc.name, tc.markers...)
			runner := &testsupport.FakeRunner{}
			exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
			rec := &project.Record{Name: tc.name, Tag: project.Tag{Pending: project.PendingInstall, Backend: tc.backend}}

			res := exec.Install(context.Background(), rec)
			if !res.Success {
				t.Fatalf("install failed: %+v", res)
			}
			lines := runner.CommandLines()
			if len(lines) != len(tc.want) {
				t.Fatalf("commands = %q", lines)
			}
			for i, prefix := range tc.want {
				if !strings.HasPrefix(lines[i], prefix) {
					t.Fatalf("command %d = %q, want prefix %q", i, lines[i], prefix)
				}
			}
		})
	}
}

func TestInstallGoSetsGOBIN(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.FakeRunner{}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)
	exec.Install(context.Background(), &project.Record{Name: "gotool", Tag: project.Tag{Pending: project.PendingInstall, Backend: project.BackendGo}})

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	want := "GOBIN=" + filepath.Join(cfg.Paths.Prefix, "bin")
	if len(calls[0].Env) != 1 || calls[0].Env[0] != want {
		t.Fatalf("env = %q, want %q", calls[0].Env, want)
	}
}

func TestInstallPipRequirementsFailureIsNonFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, "pylib", "setup.py", "requirements.txt")
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		if cmd.Mode == shell.ModeNag {
			return testsupport.Failure(cmd, 1, "no matching distribution")
		}
		return shell.Output{}, nil
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner, actions.WithPython("python3.12"))

	res := exec.Install(context.Background(), &project.Record{Name: "pylib", Tag: project.Tag{Pending: project.PendingInstall, Backend: project.BackendPip}})
	if !res.Success {
		t.Fatalf("install failed: %+v", res)
	}
	if lines := runner.CommandLines(); !strings.HasPrefix(lines[1], "python3.12 -m pip") {
		t.Fatalf("commands = %q", lines)
	}
}

func TestInstallMesonRetriesWithoutWipe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, "fresh", "meson.build")
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		if cmd.Name == "meson" && cmd.Args[1] == "--wipe" {
			return testsupport.Failure(cmd, 1, "no build directory to wipe")
		}
		return shell.Output{}, nil
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)

	res := exec.Install(context.Background(), &project.Record{Name: "fresh", Tag: project.Tag{Pending: project.PendingInstall, Backend: project.BackendMeson}})
	if !res.Success {
		t.Fatalf("install failed: %+v", res)
	}
	lines := runner.CommandLines()
	if len(lines) != 4 || strings.Contains(lines[1], "--wipe") {
		t.Fatalf("commands = %q", lines)
	}
}

func TestInstallFailureEncodesBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, "broken", "Makefile")
	runner := &testsupport.FakeRunner{Handler: func(cmd shell.Command) (shell.Output, error) {
		return testsupport.Failure(cmd, 2, "make: *** No rule to make target")
	}}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, runner)

	res := exec.Install(context.Background(), &project.Record{Name: "broken", Tag: project.Tag{Pending: project.PendingInstall, Backend: project.BackendMake}})
	if res.Success || res.Touch {
		t.Fatalf("result = %+v", res)
	}
	if got := res.Tag.Encode(); got != 0xE2 {
		t.Fatalf("encoded failure = %#x, want 0xe2", got)
	}
	if res.Message != "FAILED installing project broken" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestDeleteRemovesTree(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, "gone", "Makefile")
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, &testsupport.FakeRunner{})

	res := exec.Delete(context.Background(), &project.Record{Name: "gone", URL: "https://example.com/gone", Tag: project.Tag{Pending: project.PendingDelete}})
	if !res.Success {
		t.Fatalf("delete failed: %+v", res)
	}
	if _, err := os.Stat(root); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("tree still present: %v", err)
	}
	if !strings.Contains(res.Message, "pspman -i https://example.com/gone") {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestDeleteMissingDirectorySucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, &testsupport.FakeRunner{})
	res := exec.Delete(context.Background(), &project.Record{Name: "never-cloned", Tag: project.Tag{Pending: project.PendingDelete}})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestDeletePermissionErrorLeavesTreeIntact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, "locked", "Makefile")
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, &testsupport.FakeRunner{},
		actions.WithRemover(func(string) error {
			return &fs.PathError{Op: "unlinkat", Path: root, Err: fs.ErrPermission}
		}),
	)

	res := exec.Delete(context.Background(), &project.Record{Name: "locked", Tag: project.Tag{Pending: project.PendingDelete}})
	if res.Success {
		t.Fatal("expected delete failure")
	}
	if !res.Tag.Failed() || res.Tag.Outcome.Step != project.StepDelete {
		t.Fatalf("tag = %+v", res.Tag)
	}
	if _, err := os.Stat(filepath.Join(root, "Makefile")); err != nil {
		t.Fatalf("tree was modified: %v", err)
	}
}

func TestDeleteChecksPermissionsBeforeRemoving(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	cfg := testsupport.NewConfig(t)
	root := testsupport.MakeWorkTree(t, cfg.Paths.CloneDir, "sealed", "Makefile")
	inner := filepath.Join(root, "sub")
	testsupport.WriteFile(t, filepath.Join(inner, "file"), "x")
	if err := os.Chmod(inner, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(inner, 0o755) })

	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, &testsupport.FakeRunner{})
	res := exec.Delete(context.Background(), &project.Record{Name: "sealed", Tag: project.Tag{Pending: project.PendingDelete}})
	if res.Success {
		t.Fatal("expected delete failure")
	}
	if _, err := os.Stat(filepath.Join(root, "Makefile")); err != nil {
		t.Fatalf("tree was partially removed: %v", err)
	}
}

func TestSinksReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reporter := &recordingReporter{}
	exec := actions.New(cfg.Paths.CloneDir, cfg.Paths.Prefix, &testsupport.FakeRunner{}, actions.WithReporter(reporter))

	ok := project.Tag{Backend: project.BackendMake}
	ok.MarkSucceeded(project.StepInstall, true)
	if res := exec.Success(context.Background(), &project.Record{Name: "a", Tag: ok}); !res.Success || res.Touch {
		t.Fatalf("success sink result = %+v", res)
	}

	bad := project.Tag{Backend: project.BackendPip}
	bad.MarkFailed(project.StepInstall, "pip exited 1")
	res := exec.Failure(context.Background(), &project.Record{Name: "b", Tag: bad})
	if !res.Success {
		t.Fatal("failure sink must not fail")
	}
	if res.Message != "pip install failed for b: pip exited 1" {
		t.Fatalf("message = %q", res.Message)
	}

	if len(reporter.lines) != 2 {
		t.Fatalf("lines = %+v", reporter.lines)
	}
	if reporter.lines[0].Verb != "installed" || !reporter.lines[0].Success {
		t.Fatalf("success line = %+v", reporter.lines[0])
	}
	if reporter.lines[1].Success || reporter.lines[1].Detail != "pip exited 1" {
		t.Fatalf("failure line = %+v", reporter.lines[1])
	}
}
