// Command ish is an interactive, job-control-aware shell.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"ish"
	"ish/internal/ishlog"
	"ish/parser"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == ish.ReexecFlag {
		os.Exit(ish.RunReexecChild(os.Args[2:]))
	}

	log := ishlog.New(os.Stderr, "ish: ")
	st := ish.NewState(log)

	repl(st, log)
}

func repl(st *ish.State, log *ishlog.Logger) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "ish> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if line != "" {
					runLine(st, log, line)
				}
				return
			}
			log.Errorf("read: %v", err)
			return
		}

		runLine(st, log, line)
	}
}

func runLine(st *ish.State, log *ishlog.Logger, line string) {
	result, err := ish.Eval(st, line)
	if err != nil {
		var perr parser.ParseError
		if errors.As(err, &perr) {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		} else {
			log.Errorf("%v", err)
		}
		return
	}
	if result.Backgrounded {
		fmt.Fprintf(os.Stdout, "[%d]\n", result.JobID)
	}
}
