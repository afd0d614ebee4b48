package job

import (
	"slices"
	"sync"
)

// Table is the ordered registry of tracked jobs. The last entry is the
// current job. It is shared by the command loop and the SIGCHLD path, so
// every access goes through its lock.
type Table struct {
	mu   sync.Mutex
	jobs []*Job
}

func NewTable() *Table {
	return &Table{}
}

// Do runs fn with the table locked. Job fields may be read and written
// inside fn.
func (t *Table) Do(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
}

// Add appends j and assigns it the next job number: one more than the
// highest number currently in the table.
func (t *Table) Add(j *Job) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.add(j)
}

// add is Add for callers that hold the lock.
func (t *Table) add(j *Job) int {
	highest := 0
	for _, other := range t.jobs {
		if other.Number > highest {
			highest = other.Number
		}
	}
	j.Number = highest + 1
	t.jobs = append(t.jobs, j)
	return j.Number
}

// Current returns the most recently added job, or nil.
func (t *Table) Current() *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current()
}

func (t *Table) current() *Job {
	if len(t.jobs) == 0 {
		return nil
	}
	return t.jobs[len(t.jobs)-1]
}

// Foreground returns the newest job that still holds the foreground.
func (t *Table) Foreground() *Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.jobs) - 1; i >= 0; i-- {
		j := t.jobs[i]
		if j.Placement == Foreground && j.State() != Done {
			return j
		}
	}
	return nil
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Each calls fn for every job in order with the table locked. current is
// true for the last job.
func (t *Table) Each(fn func(j *Job, current bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, j := range t.jobs {
		fn(j, i == len(t.jobs)-1)
	}
}

// Jobs returns a copy of the table's ordering.
func (t *Table) Jobs() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Job(nil), t.jobs...)
}

// StateOf reads j's state under the table lock.
func (t *Table) StateOf(j *Job) (State, Placement) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return j.State(), j.Placement
}

// removeDone drops every finished job. Callers hold the lock.
func (t *Table) removeDone() []*Job {
	var removed []*Job
	t.jobs = slices.DeleteFunc(t.jobs, func(j *Job) bool {
		if j.State() == Done {
			removed = append(removed, j)
			return true
		}
		return false
	})
	return removed
}
