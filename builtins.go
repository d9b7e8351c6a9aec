package ish

import (
	"fmt"
	"os"
)

// defaultBuiltins is the built-in registry: cd, exit, and rehash. Every
// other command the teacher shipped (pwd, echo, history, env, export,
// alias/unalias, jobs/fg/bg, help) named functionality out of scope here
// and was dropped rather than adapted — see the ledger.
func defaultBuiltins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"cd":     builtinCd,
		"exit":   builtinExit,
		"rehash": builtinRehash,
	}
}

// builtinCd changes the shell's working directory. With no argument it
// goes to $HOME; with exactly one argument it goes there. The directory
// left behind is recorded in st.PrevDir for any future caller that wants
// it — "cd -" itself is not part of this built-in's contract, since
// spec.md §4.3 doesn't name it. More than one argument is a usage error.
//
// Exit codes: 0 success, 1 too many arguments, 2 $HOME unset and no
// argument given, 3 the chdir itself failed.
func builtinCd(st *State, args [][]byte) int {
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "cd: too many arguments")
		return 1
	}

	var target string
	if len(args) == 1 {
		target = string(args[0])
	} else {
		target = os.Getenv("HOME")
		if target == "" {
			fmt.Fprintln(os.Stderr, "cd: HOME not set")
			return 2
		}
	}

	prev, err := os.Getwd()
	if err != nil {
		prev = ""
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(os.Stderr, "cd: %v\n", err)
		return 3
	}
	st.PrevDir = prev
	return 0
}

// builtinExit ends the shell process. With no argument, or an argument
// that fails to parse as an integer, it exits 0 — mirroring the original
// source's forgiving parse: a malformed argument is not itself an error,
// it just falls back to the default code. With a parseable argument it
// exits with that value truncated to a byte, the same as any process
// exit status.
func builtinExit(st *State, args [][]byte) int {
	code := 0
	if len(args) > 0 {
		if n, ok := parseInt(args[0]); ok {
			code = n
		}
	}
	os.Exit(code & 0xff)
	panic("unreachable")
}

// builtinRehash clears and repopulates the search cache from the current
// PATH. It takes no arguments and always succeeds.
func builtinRehash(st *State, args [][]byte) int {
	st.Search.Rehash()
	return 0
}

func parseInt(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	i := 0
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		i = 1
	}
	if i == len(b) {
		return 0, false
	}
	n := 0
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, false
		}
		n = n*10 + int(b[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}
