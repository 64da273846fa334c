// Command pspman clones, updates and installs software projects from git
// repositories into a personal prefix.
//
// Running pspman with no subcommand performs an update cycle: deletions given
// with -d, new projects given with -i, then a pull and rebuild of every
// tracked project. The list, history, unlock, version and config subcommands
// inspect or repair state without running the pipeline.
package main
