package preflight

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pspman/internal/config"
	"pspman/internal/deps"
	"pspman/internal/logging"
	"pspman/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

var geteuid = os.Geteuid

// RunAll executes every check for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckRoot(geteuid(), cfg.Run.ForceRisk),
		CheckDirectoryAccess("Clone directory", cfg.Paths.CloneDir),
		CheckDirectoryAccess("Install prefix", cfg.Paths.Prefix),
	}
}

// Verify runs RunAll and the dependency check and converts the first failure
// into an error.
func Verify(cfg *config.Config) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "", "configuration missing", nil)
	}
	for _, res := range RunAll(cfg) {
		if !res.Passed {
			return &PermissionError{Check: res.Name, Reason: res.Detail}
		}
	}
	if missing := deps.MissingRequired(deps.CheckBinaries(deps.BuildTools(""))); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, m := range missing {
			names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Detail))
		}
		return services.Wrap(services.ErrConfiguration, "preflight", "dependencies", "missing "+strings.Join(names, ", "), nil)
	}
	return nil
}

// ReportOptionalTools logs one warning per missing optional build tool and
// returns them. Projects needing a missing tool fail at install.
func ReportOptionalTools(logger *slog.Logger) []deps.Status {
	if logger == nil {
		logger = logging.NewNop()
	}
	missing := deps.MissingOptional(deps.CheckBinaries(deps.BuildTools("")))
	for _, m := range missing {
		logging.WarnWithContext(logger, "optional build tool missing", "build_tool_missing",
			logging.String("tool", m.Name),
			logging.String("command", m.Command),
			logging.String(logging.FieldImpact, m.Description+" is unavailable; those projects fail to install"),
			logging.String(logging.FieldErrorHint, "install "+m.Command+" and rerun pspman"),
		)
	}
	return missing
}
