package ish

import (
	"golang.org/x/sys/unix"
)

// ProcState is the three-value lattice a process's WaitSnapshot collapses
// to, totally ordered Active < Stopped < Terminated so a Job's aggregate
// state is simply the minimum over its processes.
type ProcState int

const (
	Active ProcState = iota
	Stopped
	Terminated
)

func (s ProcState) String() string {
	switch s {
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// WaitKind tags the variant of a WaitSnapshot, mirroring the outcomes
// waitpid(2) can report. PtraceEvent only arises on Linux.
type WaitKind int

const (
	StillAlive WaitKind = iota
	Exited
	Signaled
	StoppedSignal
	Continued
	PtraceEvent
)

// WaitSnapshot is a point-in-time process status, equivalent to one
// waitpid(2) result. Every variant except StillAlive carries the pid it
// describes.
type WaitSnapshot struct {
	Kind   WaitKind
	Pid    int
	Code   int           // valid when Kind == Exited: 0..255
	Signal unix.Signal   // valid when Kind == Signaled or StoppedSignal
}

// ProcState maps a WaitSnapshot to the three-value job-state lattice:
// Exited/Signaled terminate a process, Stopped/PtraceEvent merely pause it,
// and Continued/StillAlive leave it running.
func (w WaitSnapshot) ProcState() ProcState {
	switch w.Kind {
	case Exited, Signaled:
		return Terminated
	case StoppedSignal, PtraceEvent:
		return Stopped
	default:
		return Active
	}
}

// snapshotFromStatus converts one unix.Wait4 result into a WaitSnapshot.
func snapshotFromStatus(pid int, ws unix.WaitStatus) WaitSnapshot {
	switch {
	case ws.Exited():
		return WaitSnapshot{Kind: Exited, Pid: pid, Code: ws.ExitStatus()}
	case ws.Signaled():
		return WaitSnapshot{Kind: Signaled, Pid: pid, Signal: ws.Signal()}
	case ws.Stopped():
		return WaitSnapshot{Kind: StoppedSignal, Pid: pid, Signal: ws.StopSignal()}
	case ws.Continued():
		return WaitSnapshot{Kind: Continued, Pid: pid}
	default:
		return WaitSnapshot{Kind: PtraceEvent, Pid: pid}
	}
}

// wait4Any blocks for the next status change among any of the shell's
// children (stopped, continued, or terminated), equivalent to the Rust
// original's nix::sys::wait::wait().
func wait4Any() (WaitSnapshot, error) {
	var ws unix.WaitStatus
	pid, err := unix.Wait4(-1, &ws, unix.WUNTRACED|unix.WCONTINUED, nil)
	if err != nil {
		return WaitSnapshot{}, err
	}
	return snapshotFromStatus(pid, ws), nil
}
