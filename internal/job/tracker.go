package job

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Marker returns the jobs-listing marker: "+" for the current job, "-" for
// the rest.
func Marker(current bool) string {
	if current {
		return "+"
	}
	return "-"
}

// FormatLine renders one line of the jobs listing or a Done notice.
func FormatLine(number int, current bool, state State, commandLine string) string {
	return fmt.Sprintf("[%d] %s %s       %s\n", number, Marker(current), state, commandLine)
}

// Tracker turns child status changes into job transitions and removes
// finished jobs from the table.
type Tracker struct {
	table  *Table
	waiter Waiter
	out    io.Writer
	log    log.FieldLogger
	stats  *stats
}

func NewTracker(table *Table, waiter Waiter, out io.Writer, logger log.FieldLogger, reg metrics.Registry) *Tracker {
	if waiter == nil {
		waiter = SysWaiter{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Tracker{
		table:  table,
		waiter: waiter,
		out:    out,
		log:    logger,
		stats:  newStats(reg),
	}
}

func (t *Tracker) Table() *Table {
	return t.table
}

// SetOutput changes where launch lines and Done notices are written.
func (t *Tracker) SetOutput(w io.Writer) {
	t.table.Do(func() { t.out = w })
}

// Register adds a freshly launched job to the table.
func (t *Tracker) Register(j *Job) int {
	return t.register(j, false)
}

// Announce registers j like Register and, for a background job, writes the
// "[n] pgid" launch line. The line is written before the table is unlocked,
// so it always precedes the job's Done notice.
func (t *Tracker) Announce(j *Job) int {
	return t.register(j, true)
}

func (t *Tracker) register(j *Job, announce bool) int {
	var n, tracked int
	t.table.Do(func() {
		n = t.table.add(j)
		tracked = len(t.table.jobs)
		if announce && j.Placement == Background && t.out != nil {
			fmt.Fprintf(t.out, "[%d] %d\n", n, j.Pgid)
		}
	})
	t.stats.launched.Inc(1)
	t.stats.tracked.Update(int64(tracked))
	t.log.WithFields(log.Fields{
		"job":       n,
		"pgid":      j.Pgid,
		"placement": j.Placement,
		"cmd":       j.CommandLine,
	}).Info("Registered job")
	return n
}

// ReapOne consumes a status change for j. A blocking call waits on the whole
// process group without holding the table lock, so the SIGCHLD path keeps
// running meanwhile; a non-blocking call polls each live process.
func (t *Tracker) ReapOne(j *Job, blocking bool) error {
	if !blocking {
		var err error
		t.table.Do(func() { err = t.poll(j) })
		return err
	}

	pid, ws, err := t.waiter.Wait4(-j.Pgid, blockingOptions)
	if err == unix.ECHILD {
		t.table.Do(func() { t.lost(j) })
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "wait for process group %d", j.Pgid)
	}
	t.table.Do(func() { t.apply(j, pid, ws) })
	return nil
}

// Sweep polls every background job that has not finished and drops every
// job that has. Foreground jobs are left to the blocking wait that owns them.
func (t *Tracker) Sweep() {
	t.table.Do(func() {
		for _, j := range t.table.jobs {
			if j.Placement == Foreground || j.State() == Done {
				continue
			}
			if err := t.poll(j); err != nil {
				t.log.WithFields(log.Fields{"job": j.Number, "error": err}).Error("Error polling job")
			}
		}

		removed := t.table.removeDone()
		if len(removed) == 0 {
			return
		}
		for _, j := range removed {
			t.log.WithFields(log.Fields{"job": j.Number, "pgid": j.Pgid}).Debug("Removed job")
		}
		t.stats.removed.Inc(int64(len(removed)))
		t.stats.tracked.Update(int64(len(t.table.jobs)))
	})
}

// poll checks each live process without blocking. Callers hold the lock.
func (t *Tracker) poll(j *Job) error {
	for _, p := range j.Processes {
		if p.State == Done {
			continue
		}
		pid, ws, err := t.waiter.Wait4(p.Pid, nonBlockingOptions)
		switch {
		case err == unix.ECHILD:
			t.finish(j, p, 0)
		case err != nil:
			return errors.Wrapf(err, "poll pid %d", p.Pid)
		case pid == p.Pid:
			t.apply(j, pid, ws)
		}
	}
	return nil
}

// lost marks every live process of j done after the OS reported that none
// are left to wait for. Callers hold the lock.
func (t *Tracker) lost(j *Job) {
	for _, p := range j.Processes {
		if p.State != Done {
			t.finish(j, p, 0)
		}
	}
}

// apply records one status change. Callers hold the lock.
func (t *Tracker) apply(j *Job, pid int, ws unix.WaitStatus) {
	p := j.process(pid)
	if p == nil {
		return
	}

	logger := t.log.WithFields(log.Fields{"job": j.Number, "pid": pid, "pgid": j.Pgid})
	switch ev := Classify(ws); ev {
	case EventContinued:
		if p.State == Stopped {
			t.stats.continued.Inc(1)
		}
		p.State = Running
		logger.Debug("Process continued")
	case EventStopped:
		before := j.State()
		p.State = Stopped
		j.Placement = Background
		if before != Stopped {
			t.stats.stopped.Inc(1)
		}
		logger.WithField("signal", ws.StopSignal()).Debug("Process stopped")
	case EventExited:
		t.finish(j, p, ws)
		if ws.Signaled() {
			logger.WithField("signal", ws.Signal()).Debug("Process killed")
		} else {
			logger.WithField("exitCode", ws.ExitStatus()).Debug("Process exited")
		}
	default:
		logger.WithField("status", uint32(ws)).Warn("Unrecognized wait status")
	}
}

// finish marks p done. When that finishes the job, a background job gets its
// Done notice and the job is parked in the background for the next sweep to
// remove. Callers hold the lock.
func (t *Tracker) finish(j *Job, p *Process, ws unix.WaitStatus) {
	before := j.State()
	p.State = Done
	p.Status = ws
	if before == Done || j.State() != Done {
		return
	}

	if j.Placement == Background && t.out != nil {
		fmt.Fprint(t.out, FormatLine(j.Number, t.table.current() == j, Done, j.CommandLine))
	}
	j.Placement = Background
	t.stats.done.Inc(1)
}
