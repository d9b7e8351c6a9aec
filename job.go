package ish

import (
	"os/exec"
	"syscall"
)

// Process is one OS process belonging to a Job, tracked by pid alongside
// its most recently observed state. ExitCode and Signal are only
// meaningful once State is Terminated, set by whichever of Exited or
// Signaled the terminating WaitSnapshot carried.
type Process struct {
	Pid      int
	State    ProcState
	ExitCode int
	Signaled bool
	Signal   int
}

// Job is one pipeline invocation: an ordered list of processes sharing a
// process group, plus the source text it was built from.
type Job struct {
	ID        int
	Pgid      int
	Line      string
	Processes []Process
}

// State is the aggregate of a Job's processes: the minimum over their
// individual states, since Active < Stopped < Terminated. An empty job
// (spawn failed before any process started) is reported Terminated.
func (j Job) State() ProcState {
	if len(j.Processes) == 0 {
		return Terminated
	}
	state := Terminated
	for _, p := range j.Processes {
		if p.State < state {
			state = p.State
		}
	}
	return state
}

// JobBuilder accumulates the processes of one pipeline as they are spawned,
// left to right. All processes share the process group seeded by the
// first one started; this stands in for the fork-then-setpgid dance a
// C-style shell performs between fork and exec, since a Go process cannot
// fork a running goroutine-ful binary and continue executing arbitrary
// code on only the child side of the split. os/exec already performs the
// fork+exec in one syscall sequence; what the parent still controls is
// the process group the child lands in, which SysProcAttr.Pgid sets
// directly without needing a mid-fork callback.
type JobBuilder struct {
	id        int
	line      string
	pgid      int
	processes []Process
}

// NewJobBuilder starts a builder for a pipeline with the given id and
// source line.
func NewJobBuilder(id int, line string) *JobBuilder {
	return &JobBuilder{id: id, line: line}
}

// Spawn starts cmd as the next process of the job, placing it in the
// job's process group. The first call seeds the group from the new
// process's own pid (Setpgid with Pgid 0); later calls join that group
// explicitly.
func (b *JobBuilder) Spawn(cmd *exec.Cmd) (int, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pgid = b.pgid

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if b.pgid == 0 {
		b.pgid = pid
	}
	b.processes = append(b.processes, Process{Pid: pid, State: Active})
	return pid, nil
}

// Pgid reports the process group seeded so far; zero until the first
// Spawn succeeds.
func (b *JobBuilder) Pgid() int { return b.pgid }

// Build finalizes the job. Called once every stage has been spawned, or
// spawning gave up partway through — in which case whatever processes did
// start still make up a valid, if incomplete, job.
func (b *JobBuilder) Build() Job {
	return Job{ID: b.id, Pgid: b.pgid, Line: b.line, Processes: b.processes}
}
