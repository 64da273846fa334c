package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pspman/internal/database"
	"pspman/internal/lockfile"
	"pspman/internal/services"
)

func newUnlockCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Remove a stale run lock and restore the database backup if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			holder, err := lockfile.Unlock(cfg.LockPath())
			switch {
			case errors.Is(err, services.ErrNotFound):
				fmt.Fprintf(out, "Lock file %s not found\n", cfg.LockPath())
			case err != nil:
				return err
			case holder != "":
				fmt.Fprintf(out, "Removed lock %s held by %s\n", cfg.LockPath(), holder)
			default:
				fmt.Fprintf(out, "Removed lock %s\n", cfg.LockPath())
			}

			restored, err := database.RestoreBackup(cfg.DatabasePath())
			if err != nil {
				return err
			}
			if restored {
				fmt.Fprintf(out, "Restored %s from its backup\n", cfg.DatabasePath())
			}
			return nil
		},
	}
}
