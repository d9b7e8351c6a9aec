package ish

import (
	"fmt"
	"sync"
)

// JobEvent reports that JobSet.Update observed a job's aggregate state
// change, along with the pid whose own transition caused it: the pid
// named by the WaitSnapshot that Update was given.
type JobEvent struct {
	JobID int
	Pid   int
	State ProcState
}

// JobSet tracks every job the shell currently knows about, background or
// foreground, keyed by job id.
type JobSet struct {
	mu   sync.Mutex
	next int
	jobs map[int]*Job
}

// NewJobSet returns an empty JobSet.
func NewJobSet() *JobSet {
	return &JobSet{jobs: make(map[int]*Job)}
}

// Push registers a newly built job and assigns it the next job id.
func (s *JobSet) Push(line string, processes []Process, pgid int) *JobDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.jobs[id] = &Job{ID: id, Pgid: pgid, Line: line, Processes: processes}
	return &JobDescriptor{set: s, id: id}
}

// lookup returns the live job for id, if any, without copying it.
func (s *JobSet) lookup(id int) (*Job, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

// remove deletes a job once it has fully terminated and been reported.
func (s *JobSet) remove(id int) {
	delete(s.jobs, id)
}

// Snapshot returns a copy of every tracked job, for listing (e.g. a future
// "jobs" builtin) or tests.
func (s *JobSet) Snapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// Update folds one WaitSnapshot into whichever tracked job owns the pid it
// names. It returns the owning job's id and, when the job's aggregate
// state changed as a result, a JobEvent describing the transition. A pid
// that belongs to no tracked job is a wait desynchronisation — per
// spec.md §4.4 and §7 this is a programmer error, not a user error, and
// Update panics rather than returning quietly: every pid this shell ever
// waits on came from a process JobBuilder.Spawn already recorded, so one
// showing up unknown means the shell's bookkeeping and the kernel's have
// fallen out of sync and nothing past this point can be trusted.
func (s *JobSet) Update(w WaitSnapshot) (jobID int, event *JobEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.jobs {
		for i := range job.Processes {
			if job.Processes[i].Pid != w.Pid {
				continue
			}
			before := job.State()
			job.Processes[i].State = w.ProcState()
			if w.Kind == Exited {
				job.Processes[i].ExitCode = w.Code
			} else if w.Kind == Signaled {
				job.Processes[i].Signaled = true
				job.Processes[i].Signal = int(w.Signal)
			}
			after := job.State()
			if after == before {
				return id, nil
			}
			return id, &JobEvent{JobID: id, Pid: w.Pid, State: after}
		}
	}
	panic(fmt.Sprintf("ish: wait reported unknown pid %d", w.Pid))
}

// JobDescriptor is a handle to one job returned by Push, used by the
// evaluator to wait on or release the job it just created without
// re-resolving it by id each time.
type JobDescriptor struct {
	set *JobSet
	id  int
}

// ID returns the job id this descriptor refers to.
func (d *JobDescriptor) ID() int { return d.id }

// Job returns a snapshot of the current state of the job this descriptor
// refers to, or false if it has since been released.
func (d *JobDescriptor) Job() (Job, bool) {
	d.set.mu.Lock()
	defer d.set.mu.Unlock()
	j, ok := d.set.lookup(d.id)
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Release drops the job from the set, e.g. once a foreground job has
// fully terminated and been reported to the user.
func (d *JobDescriptor) Release() {
	d.set.mu.Lock()
	defer d.set.mu.Unlock()
	d.set.remove(d.id)
}
