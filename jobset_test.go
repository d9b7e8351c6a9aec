package ish

import (
	"os"
	"path/filepath"
	"testing"
)

func TestJobAggregateStateMonotonicity(t *testing.T) {
	js := NewJobSet()
	desc := js.Push("sleep 1 | sleep 1", []Process{
		{Pid: 101, State: Active},
		{Pid: 102, State: Active},
	}, 101)

	if job, _ := desc.Job(); job.State() != Active {
		t.Fatalf("initial state = %v, want Active", job.State())
	}

	js.Update(WaitSnapshot{Kind: Exited, Pid: 101, Code: 0})
	if job, _ := desc.Job(); job.State() != Active {
		t.Fatalf("state after one of two exits = %v, want Active (job stays Active until every process has terminated)", job.State())
	}

	if _, event := js.Update(WaitSnapshot{Kind: Exited, Pid: 102, Code: 0}); event == nil {
		t.Fatalf("Update for pid 102 returned no transition event, want one")
	}
	job, ok := desc.Job()
	if !ok {
		t.Fatalf("job not found after full termination")
	}
	if job.State() != Terminated {
		t.Fatalf("state after both exits = %v, want Terminated", job.State())
	}

	// Once Terminated, further updates must not move the state backward.
	js.Update(WaitSnapshot{Kind: Exited, Pid: 102, Code: 0})
	job, _ = desc.Job()
	if job.State() != Terminated {
		t.Errorf("state after repeat update = %v, want Terminated", job.State())
	}
}

func TestJobSetSlotStabilityAcrossReleases(t *testing.T) {
	js := NewJobSet()

	d1 := js.Push("job one", []Process{{Pid: 201, State: Active}}, 201)
	d2 := js.Push("job two", []Process{{Pid: 202, State: Active}}, 202)

	if got := len(js.Snapshot()); got != 2 {
		t.Fatalf("tracked jobs = %d, want 2", got)
	}

	js.Update(WaitSnapshot{Kind: Exited, Pid: 201, Code: 0})
	d1.Release()

	if got := len(js.Snapshot()); got != 1 {
		t.Fatalf("tracked jobs after releasing terminated job = %d, want 1", got)
	}
	if job, ok := d2.Job(); !ok || job.Pgid != 202 {
		t.Errorf("surviving job's descriptor broken after sibling release: job=%+v ok=%v", job, ok)
	}

	js.Update(WaitSnapshot{Kind: Exited, Pid: 202, Code: 0})
	d2.Release()
	if got := len(js.Snapshot()); got != 0 {
		t.Errorf("tracked jobs after releasing every job = %d, want 0", got)
	}
}

// TestJobSetUpdatePanicsOnUnknownPid exercises the wait-desynchronisation
// path spec.md §4.4 and §7 call out explicitly: a WaitSnapshot for a pid
// that matches no tracked job is a programmer error, not a user error,
// and Update must abort rather than quietly ignore it.
func TestJobSetUpdatePanicsOnUnknownPid(t *testing.T) {
	js := NewJobSet()
	js.Push("job", []Process{{Pid: 301, State: Active}}, 301)

	defer func() {
		if recover() == nil {
			t.Errorf("Update for unknown pid did not panic, want panic")
		}
	}()
	js.Update(WaitSnapshot{Kind: Exited, Pid: 999999, Code: 0})
}

// TestBuiltinFastPathNeverForks exercises a one-command, zero-redirect
// pipeline whose name matches a built-in and checks that its effect (the
// process's own cwd changing) is visible to the calling goroutine — which
// only happens if builtinCd ran in this process rather than inside a
// reexeced child, since a child's os.Chdir can never be observed by its
// parent.
func TestBuiltinFastPathNeverForks(t *testing.T) {
	dir := t.TempDir()
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	st := newTestState(t)
	original, _ := os.Getwd()
	defer os.Chdir(original)

	if _, err := Eval(st, "cd "+dir+"\n"); err != nil {
		t.Fatalf("Eval: %v", err)
	}

	got, _ := os.Getwd()
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != realDir {
		t.Errorf("cwd after fast-path cd = %q, want %q", gotReal, realDir)
	}
}
