// Package shell is the single choke point through which pspman runs external
// tools (git, make, pip, meson, ninja, go).
//
// A Runner executes one Command and returns its captured output. The Mode on
// each command decides whether a non-zero exit becomes a *CommandError and how
// loudly stderr is logged. Tests substitute their own Runner.
package shell
