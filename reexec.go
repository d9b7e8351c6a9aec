package ish

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"ish/internal/ishlog"
)

// ReexecFlag, as os.Args[1], tells main that this invocation of the ish
// binary is not an interactive shell but a single pipeline stage's child
// routine, reexeced by the parent shell rather than forked. Go cannot
// fork a running, goroutine-ful binary and run arbitrary code on only one
// side of the split the way the fork-then-builtin-or-execve dance in a
// C-style shell does; reexecing the shell's own binary with a narrow,
// explicit instruction is the substitute, the same trick
// tjper-teleport's jobworker uses to hand a single job's command to a
// freshly started child process instead of forking its long-lived
// server.
const ReexecFlag = "-ish-exec-child"

// RunReexecChild executes one pipeline stage's child-side routine and
// returns the process exit code. args is os.Args with ReexecFlag already
// stripped. The parent process has already opened every redirect target
// and wired this process's stdin/stdout/stderr/ExtraFiles accordingly;
// everything here is mode dispatch only.
func RunReexecChild(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "ish: malformed reexec child invocation")
		return 126
	}

	switch args[0] {
	case "builtin":
		return runReexecBuiltin(args[1:])
	case "exec":
		return runReexecExec(args[1:])
	case "notfound":
		return runReexecNotFound(args[1:])
	case "fail":
		return 126
	default:
		fmt.Fprintf(os.Stderr, "ish: unknown reexec mode %q\n", args[0])
		return 126
	}
}

// runReexecBuiltin runs a single built-in in a throwaway State. Any
// side effect the built-in makes on that State (rehash populating a
// search cache nobody will read again) vanishes when this process exits;
// only effects on the process itself (cd's chdir, exit's os.Exit) are
// visible to anyone, and the caller only cares about this process's exit
// code anyway.
func runReexecBuiltin(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "ish: reexec builtin with no name")
		return 126
	}
	name := args[0]
	rest := make([][]byte, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = []byte(a)
	}

	st := NewState(ishlog.New(io.Discard, ""))
	fn, ok := st.Lookup([]byte(name))
	if !ok {
		fmt.Fprintf(os.Stderr, "ish: %s: not a built-in\n", name)
		return 126
	}
	return fn(st, rest)
}

// runReexecExec replaces this process's image with the resolved binary
// at path, preserving argv[0] as the original command name rather than
// the resolved path. If the exec itself fails — permissions changed
// since the search cache was built, the binary was removed, and so on —
// that failure is reported the same way any other child setup error is.
func runReexecExec(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "ish: malformed reexec exec invocation")
		return 126
	}
	path := args[0]
	argv := args[1:]

	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", argv[0], err)
		return 126
	}
	panic("unreachable")
}

// runReexecNotFound reports a command-not-found failure for name, the
// same outcome search.Cache.Lookup failing produces in a forked child.
func runReexecNotFound(args []string) int {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	fmt.Fprintf(os.Stderr, "command not found: %s\n", name)
	return 127
}
