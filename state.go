package ish

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"ish/internal/ishlog"
	"ish/search"
)

// BuiltinFunc implements one built-in command. args excludes the command
// name itself. It returns the exit code the shell should report, the same
// way a spawned process's exit status would be reported.
type BuiltinFunc func(st *State, args [][]byte) int

// State is everything the shell carries across one interactive session:
// the search cache, the set of live jobs, the built-in registry, and a
// logger. A State is also constructed, throwaway, inside a reexeced child
// that runs a single built-in on behalf of a pipeline stage — see
// RunReexecChild — so any side effect a built-in makes on that State
// (such as Rehash populating the search cache) is necessarily discarded
// when the child exits; only cd's os.Chdir and exit's process exit escape
// a child's State.
type State struct {
	Search   *search.Cache
	Jobs     *JobSet
	Builtins map[string]BuiltinFunc
	Log      *ishlog.Logger

	// PrevDir is the working directory cd last left.
	PrevDir string
}

// NewState builds a State with a freshly populated search cache and the
// standard built-in registry.
func NewState(log *ishlog.Logger) *State {
	st := &State{
		Jobs: NewJobSet(),
		Log:  log,
	}
	st.Search = search.New(log)
	st.Builtins = defaultBuiltins()
	return st
}

// Lookup reports whether name matches a registered built-in.
func (st *State) Lookup(name []byte) (BuiltinFunc, bool) {
	fn, ok := st.Builtins[string(name)]
	return fn, ok
}

// isForeground reports whether fd is a terminal currently under the
// shell's control, the gate spec'd before any tcsetpgrp/tcgetpgrp call:
// a shell run with stdin redirected from a file has no terminal to
// arbitrate and must not attempt job-control ioctls against it.
func isForeground(fd int) bool {
	if !term.IsTerminal(fd) {
		return false
	}
	fg, err := foregroundPgrp(fd)
	if err != nil {
		return false
	}
	own, err := shellPgrp()
	return err == nil && fg == own
}

// foregroundPgrp returns the terminal's current controlling process
// group, via TIOCGPGRP.
func foregroundPgrp(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCGPGRP)
}

// setForegroundPgrp hands terminal control to pgid, via TIOCSPGRP. Used
// both to put a newly spawned foreground job in control and to restore
// the shell's own group once that job stops or terminates.
func setForegroundPgrp(fd, pgid int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
}

// controllingTTY is the file descriptor the shell arbitrates job control
// over: its own stdin, when that's a terminal.
func controllingTTY() int {
	return int(os.Stdin.Fd())
}

// shellPgrp returns the shell's own process group, the group control is
// restored to once a foreground job stops or terminates.
func shellPgrp() (int, error) {
	return unix.Getpgid(0)
}
