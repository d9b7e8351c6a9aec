package ish

import (
	"fmt"
	"os"
	"os/exec"

	"ish/parser"
)

// EvalResult reports the outcome of one Eval call. A foreground pipeline
// that ran to completion reports its exit status in Code. A pipeline left
// running or stopped in the background reports the job id it was filed
// under instead, with Backgrounded set.
type EvalResult struct {
	Code         int
	Backgrounded bool
	JobID        int
}

// Eval parses and runs one line against st. A parse error is returned as
// an error, not folded into EvalResult, since it never produced a job at
// all.
func Eval(st *State, line string) (EvalResult, error) {
	pipeline, err := parser.Parse([]byte(line))
	if err != nil {
		return EvalResult{}, err
	}
	return evalPipeline(st, line, pipeline)
}

func evalPipeline(st *State, line string, p parser.Pipeline) (EvalResult, error) {
	if len(p.Commands) == 0 {
		return EvalResult{Code: 0}, nil
	}

	// Fast path: a lone, unredirected, foreground command that matches a
	// built-in runs directly in this process instead of being spawned at
	// all. This is the only way cd and exit can have any effect outside
	// a process nobody else can observe; every other shape of pipeline
	// reexecs even a built-in stage into its own process, discarding
	// whatever it would otherwise have changed.
	if !p.IsBackground && len(p.Commands) == 1 && len(p.Commands[0].Redirects) == 0 {
		cmd := p.Commands[0]
		if fn, ok := st.Lookup(cmd.Name); ok {
			args := make([][]byte, len(cmd.Arguments))
			copy(args, cmd.Arguments)
			return EvalResult{Code: fn(st, args)}, nil
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return EvalResult{}, fmt.Errorf("resolve own executable: %w", err)
	}

	builder := NewJobBuilder(0, line)
	if err := spawnCommands(st, builder, exe, p.Commands); err != nil {
		st.Log.Warnf("spawn: %v", err)
	}
	job := builder.Build()

	if len(job.Processes) == 0 {
		return EvalResult{Code: 126}, nil
	}

	desc := st.Jobs.Push(line, job.Processes, job.Pgid)

	if p.IsBackground {
		return EvalResult{Backgrounded: true, JobID: desc.ID()}, nil
	}

	return waitForeground(st, desc)
}

// spawnCommands starts every stage of a pipeline left to right, wiring
// each stage's stdin/stdout to the previous/next stage's pipe and
// layering any explicit redirects on top. It stops at the first stage
// that fails to spawn a process at all (as opposed to a stage that spawns
// but then fails inside its reexeced child — that still counts as a
// spawned process, reporting 126 or 127 through the ordinary exit path).
func spawnCommands(st *State, builder *JobBuilder, exe string, commands []parser.Command) error {
	n := len(commands)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("pipe: %w", err)
		}
		writers[i] = w
		readers[i+1] = r
	}
	defer func() {
		for _, f := range readers {
			if f != nil {
				f.Close()
			}
		}
		for _, f := range writers {
			if f != nil {
				f.Close()
			}
		}
	}()

	for i, command := range commands {
		var stdin, stdout *os.File = os.Stdin, os.Stdout
		if readers[i] != nil {
			stdin = readers[i]
		}
		if writers[i] != nil {
			stdout = writers[i]
		}

		stderr := os.Stderr
		var extra []*os.File
		var openedFiles []*os.File
		failed := false
		for _, r := range command.Redirects {
			if r.From < 0 {
				st.Log.Warnf("%s: bad file descriptor %d", r.Target, r.From)
				failed = true
				break
			}
			f, err := openRedirect(r)
			if err != nil {
				st.Log.Warnf("%s: %v", r.Target, err)
				failed = true
				break
			}
			openedFiles = append(openedFiles, f)
			switch r.From {
			case 0:
				stdin = f
			case 1:
				stdout = f
			case 2:
				stderr = f
			default:
				idx := int(r.From) - 3
				for len(extra) <= idx {
					extra = append(extra, nil)
				}
				extra[idx] = f
			}
		}

		name := string(command.Name)
		args := make([]string, len(command.Arguments))
		for j, a := range command.Arguments {
			args[j] = string(a)
		}

		var reexecArgs []string
		switch {
		case failed || containsNUL(command):
			reexecArgs = []string{ReexecFlag, "fail"}
		case isBuiltinName(st, command.Name):
			reexecArgs = append([]string{ReexecFlag, "builtin", name}, args...)
		default:
			if path, ok := st.Search.Lookup(command.Name); ok {
				reexecArgs = append([]string{ReexecFlag, "exec", string(path), name}, args...)
			} else {
				reexecArgs = []string{ReexecFlag, "notfound", name}
			}
		}

		cmd := exec.Command(exe, reexecArgs...)
		cmd.Stdin = stdin
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.ExtraFiles = extra

		_, spawnErr := builder.Spawn(cmd)

		// Start (or the failed attempt to reach it) has already taken
		// whatever copy of these descriptors the child needs; the parent's
		// own handles on redirect targets must be closed here; they are
		// not pipe ends, so the readers/writers cleanup deferred above
		// never touches them.
		for _, f := range openedFiles {
			f.Close()
		}

		if spawnErr != nil {
			return fmt.Errorf("spawn %s: %w", name, spawnErr)
		}
	}
	return nil
}

func isBuiltinName(st *State, name []byte) bool {
	_, ok := st.Lookup(name)
	return ok
}

// containsNUL reports whether command's name or arguments contain an
// embedded NUL byte. An argv entry with an embedded NUL cannot be passed
// through execve at all — the kernel would silently truncate it — so this
// is checked before the reexeced child is even chosen, rather than left
// for the child to discover.
func containsNUL(command parser.Command) bool {
	for _, b := range command.Name {
		if b == 0 {
			return true
		}
	}
	for _, arg := range command.Arguments {
		for _, b := range arg {
			if b == 0 {
				return true
			}
		}
	}
	return false
}

func openRedirect(r parser.Redirect) (*os.File, error) {
	target := string(r.Target)
	switch r.Typ {
	case parser.Input:
		return os.Open(target)
	case parser.Output:
		return os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	case parser.Append:
		return os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	default:
		return nil, fmt.Errorf("unknown redirect type %v", r.Typ)
	}
}

// waitForeground hands the controlling terminal to desc's job, if the
// shell has one, waits for the job to either stop or fully terminate, and
// hands the terminal back to the shell before returning.
func waitForeground(st *State, desc *JobDescriptor) (EvalResult, error) {
	job, ok := desc.Job()
	if !ok {
		return EvalResult{Code: 0}, nil
	}

	fg := isForeground(controllingTTY())
	if fg {
		if err := setForegroundPgrp(controllingTTY(), job.Pgid); err != nil {
			st.Log.Warnf("tcsetpgrp to job: %v", err)
			fg = false
		}
	}

	restore := func() {
		if !fg {
			return
		}
		pgid, err := shellPgrp()
		if err != nil {
			st.Log.Warnf("getpgrp: %v", err)
			return
		}
		if err := setForegroundPgrp(controllingTTY(), pgid); err != nil {
			st.Log.Warnf("tcsetpgrp back to shell: %v", err)
		}
	}

	for {
		w, err := wait4Any()
		if err != nil {
			restore()
			return EvalResult{}, fmt.Errorf("wait: %w", err)
		}

		jobID, event := st.Jobs.Update(w)
		if jobID != desc.ID() {
			continue
		}
		if event == nil {
			continue
		}

		switch event.State {
		case Terminated:
			restore()
			finished, _ := desc.Job()
			desc.Release()
			return EvalResult{Code: exitCodeOf(finished)}, nil
		case Stopped:
			restore()
			fmt.Fprintf(os.Stderr, "[%d]+ Stopped\t%s\n", desc.ID(), final(desc).Line)
			return EvalResult{Backgrounded: true, JobID: desc.ID()}, nil
		}
	}
}

func final(desc *JobDescriptor) Job {
	j, _ := desc.Job()
	return j
}

// exitCodeOf derives the shell-visible exit status of a finished job from
// its last process: a pipeline's reported status is its final stage's,
// the same convention a POSIX shell without pipefail uses. A process
// killed by a signal is reported the traditional 128+signal way.
func exitCodeOf(j Job) int {
	if len(j.Processes) == 0 {
		return 127
	}
	last := j.Processes[len(j.Processes)-1]
	if last.Signaled {
		return 128 + last.Signal
	}
	return last.ExitCode
}
