package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pspman/internal/logging"
	"pspman/internal/project"
	"pspman/internal/queue"
	"pspman/internal/services"
	"pspman/internal/shell"
)

// Install builds and installs a project with the backend recorded in its tag.
// Records without a pending install or without a backend succeed untouched.
func (e *Executor) Install(ctx context.Context, rec *project.Record) queue.Result {
	tag := rec.Tag
	if tag.Pending != project.PendingInstall {
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("Not trying to install %s", rec.Name), Tag: tag, Success: true}
	}
	if tag.Backend == project.BackendNone {
		tag.ClearPending(project.PendingInstall)
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("No install method for %s", rec.Name), Tag: tag, Success: true}
	}

	dir := rec.Path(e.cloneDir)
	var err error
	switch tag.Backend {
	case project.BackendMake:
		err = e.installMake(ctx, dir)
	case project.BackendPip:
		err = e.installPip(ctx, dir)
	case project.BackendMeson:
		err = e.installMeson(ctx, dir)
	case project.BackendGo:
		err = e.installGo(ctx, dir)
	default:
		err = fmt.Errorf("unsupported install backend %s", tag.Backend)
	}

	if err != nil {
		tag.MarkFailed(project.StepInstall, err.Error())
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("FAILED installing project %s", rec.Name), Tag: tag}
	}
	tag.ClearPending(project.PendingInstall)
	tag.MarkSucceeded(project.StepInstall, true)
	return queue.Result{
		Name:    rec.Name,
		Message: fmt.Sprintf("Installed project %s", rec.Name),
		Tag:     tag,
		Success: true,
		Touch:   true,
	}
}

func (e *Executor) run(ctx context.Context, stage string, cmd shell.Command) error {
	if cmd.Mode == shell.ModeFail {
		cmd.Mode = shell.ModeReport
	}
	if _, err := e.runner.Run(ctx, cmd); err != nil {
		return services.Wrap(services.ErrExternalTool, "install", stage, "", err)
	}
	return nil
}

func (e *Executor) installMake(ctx context.Context, dir string) error {
	if fileExists(filepath.Join(dir, "configure")) {
		if err := e.run(ctx, "configure", shell.Command{Name: "./configure", Args: []string{"--prefix=" + e.prefix}, Dir: dir}); err != nil {
			return err
		}
	}
	if err := e.run(ctx, "make", shell.Command{Name: "make", Args: []string{"-C", dir}, Dir: dir}); err != nil {
		return err
	}
	return e.run(ctx, "make install", shell.Command{Name: "make", Args: []string{"-C", dir, "install", "PREFIX=" + e.prefix}, Dir: dir})
}

func (e *Executor) installPip(ctx context.Context, dir string) error {
	requirements := filepath.Join(dir, "requirements.txt")
	if fileExists(requirements) {
		_, err := e.runner.Run(ctx, shell.Command{
			Name: e.python,
			Args: []string{"-m", "pip", "install", "--user", "-U", "-r", requirements},
			Dir:  dir,
			Mode: shell.ModeNag,
		})
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, e.logger), "requirements install failed", "pip_requirements_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the package install may be missing dependencies"),
				logging.String(logging.FieldErrorHint, "install requirements.txt manually"),
			)
		}
	}
	return e.run(ctx, "pip", shell.Command{
		Name: e.python,
		Args: []string{"-m", "pip", "install", "--user", "-U", dir},
		Dir:  dir,
	})
}

func (e *Executor) installMeson(ctx context.Context, dir string) error {
	buildDir := filepath.Join(dir, "build", "update")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "install", "meson", "create build directory", err)
	}
	setup := func(wipe bool) error {
		args := []string{"setup"}
		if wipe {
			args = append(args, "--wipe")
		}
		args = append(args, "--buildtype=release", "--prefix="+e.prefix, "-Db_lto=true", buildDir, dir)
		return e.run(ctx, "meson setup", shell.Command{Name: "meson", Args: args, Dir: dir})
	}
	if err := setup(true); err != nil {
		e.logger.Debug("wiped meson setup failed; retrying without --wipe", logging.String("dir", dir), logging.Error(err))
		if retryErr := setup(false); retryErr != nil {
			return errors.Join(err, retryErr)
		}
	}
	if err := e.run(ctx, "ninja", shell.Command{Name: "ninja", Args: []string{"-C", buildDir}, Dir: dir}); err != nil {
		return err
	}
	return e.run(ctx, "ninja install", shell.Command{Name: "ninja", Args: []string{"-C", buildDir, "install"}, Dir: dir})
}

func (e *Executor) installGo(ctx context.Context, dir string) error {
	gobin, err := filepath.Abs(filepath.Join(e.prefix, "bin"))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "install", "go", "resolve GOBIN", err)
	}
	return e.run(ctx, "go install", shell.Command{
		Name: "go",
		Args: []string{"install", "."},
		Dir:  dir,
		Env:  []string{"GOBIN=" + gobin},
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
