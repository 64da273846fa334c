package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag, cloneDirFlag, prefixFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &cloneDirFlag, &prefixFlag, &verbose)
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:           "pspman",
		Short:         "Personal package manager for git-hosted projects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, ctx, opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Configuration file path")
	pf.StringVarP(&cloneDirFlag, "clone-dir", "c", "", "Directory holding project clones")
	pf.StringVarP(&prefixFlag, "prefix", "p", "", "Install prefix")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	f := rootCmd.Flags()
	f.StringArrayVarP(&opts.install, "install", "i", nil, "Clone and install URL[___branch[___only]] (repeatable)")
	f.StringArrayVarP(&opts.delete, "delete", "d", nil, "Delete a tracked project by name (repeatable)")
	f.BoolVarP(&opts.onlyPull, "only-pull", "o", false, "Pull and clone without installing")
	f.BoolVarP(&opts.stale, "stale", "s", false, "Do not pull existing projects")
	f.BoolVar(&opts.forceRisk, "force-risk", false, "Allow running as root")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newUnlockCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
