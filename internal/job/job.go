package job

import (
	"golang.org/x/sys/unix"
)

type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	}
	return "Unknown"
}

type Placement int

const (
	Foreground Placement = iota
	Background
)

func (p Placement) String() string {
	if p == Background {
		return "background"
	}
	return "foreground"
}

// Process is one OS process belonging to a job.
type Process struct {
	Pid    int
	Argv   []string
	State  State
	Status unix.WaitStatus
}

// Job is the shell's unit of tracked execution: one process group holding
// one process, or two for a pipeline. Number is assigned by Table.Add.
//
// Mutable fields are guarded by the lock of the table the job belongs to.
type Job struct {
	Number      int
	Pgid        int
	Processes   []*Process
	Placement   Placement
	CommandLine string
}

func New(pgid int, commandLine string, placement Placement, procs ...*Process) *Job {
	return &Job{
		Pgid:        pgid,
		Processes:   procs,
		Placement:   placement,
		CommandLine: commandLine,
	}
}

// State is Done once every process is done, Stopped if any live process is
// stopped, and Running otherwise.
func (j *Job) State() State {
	done := 0
	stopped := false
	for _, p := range j.Processes {
		switch p.State {
		case Done:
			done++
		case Stopped:
			stopped = true
		}
	}
	switch {
	case done == len(j.Processes):
		return Done
	case stopped:
		return Stopped
	}
	return Running
}

func (j *Job) Leader() *Process {
	if len(j.Processes) == 0 {
		return nil
	}
	return j.Processes[0]
}

func (j *Job) process(pid int) *Process {
	for _, p := range j.Processes {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

// Resume marks every live process running again.
func (j *Job) Resume() {
	for _, p := range j.Processes {
		if p.State != Done {
			p.State = Running
		}
	}
}
