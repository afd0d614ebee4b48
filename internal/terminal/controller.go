package terminal

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"yash/internal/job"
)

var ErrNoCurrentJob = errors.New("no current job")

// Controller decides which process group owns the terminal and implements
// the fg, bg and jobs builtins.
type Controller struct {
	tty       Terminal
	shellPgid int
	tracker   *job.Tracker
	table     *job.Table
	log       log.FieldLogger
}

func NewController(tty Terminal, shellPgid int, tracker *job.Tracker, logger log.FieldLogger) *Controller {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Controller{
		tty:       tty,
		shellPgid: shellPgid,
		tracker:   tracker,
		table:     tracker.Table(),
		log:       logger,
	}
}

// Reclaim gives the terminal back to the shell's own process group.
func (c *Controller) Reclaim() error {
	return c.tty.SetForeground(c.shellPgid)
}

func (c *Controller) reclaim() {
	if err := c.Reclaim(); err != nil {
		c.log.WithField("error", err).Error("Error reclaiming terminal")
	}
}

func (c *Controller) signal(j *job.Job, sig unix.Signal) error {
	if err := unix.Kill(-j.Pgid, sig); err != nil {
		return errors.Wrapf(err, "signal %v to process group %d", sig, j.Pgid)
	}
	c.log.WithFields(log.Fields{"job": j.Number, "pgid": j.Pgid, "signal": sig}).Debug("Signaled job")
	return nil
}

// Foreground gives j the terminal and blocks until it stops or finishes,
// then takes the terminal back. With resume set the job's group is sent
// SIGCONT first.
func (c *Controller) Foreground(j *job.Job, resume bool) error {
	c.table.Do(func() {
		j.Placement = job.Foreground
		if resume {
			j.Resume()
		}
	})

	if err := c.tty.SetForeground(j.Pgid); err != nil {
		// The group may already be gone; the wait below settles it.
		c.log.WithFields(log.Fields{"job": j.Number, "error": err}).Warn("Error giving terminal to job")
	}
	defer c.reclaim()

	if resume {
		if err := c.signal(j, unix.SIGCONT); err != nil {
			c.log.WithField("error", err).Warn("Error resuming job")
		}
	}

	for {
		if state, _ := c.table.StateOf(j); state != job.Running {
			return nil
		}
		if err := c.tracker.ReapOne(j, true); err != nil {
			c.table.Do(func() { j.Placement = job.Background })
			return err
		}
	}
}

// Fg resumes the current job in the foreground.
func (c *Controller) Fg() error {
	j := c.table.Current()
	if j == nil {
		return errors.Wrap(ErrNoCurrentJob, "fg")
	}
	return c.Foreground(j, true)
}

// Bg resumes the current job in the background without waiting for it.
func (c *Controller) Bg() error {
	j := c.table.Current()
	if j == nil {
		return errors.Wrap(ErrNoCurrentJob, "bg")
	}
	c.table.Do(func() {
		j.Placement = job.Background
		j.Resume()
	})
	return c.signal(j, unix.SIGCONT)
}

// Jobs lists every tracked job, oldest first.
func (c *Controller) Jobs(w io.Writer) {
	c.table.Each(func(j *job.Job, current bool) {
		fmt.Fprint(w, job.FormatLine(j.Number, current, j.State(), j.CommandLine))
	})
}

// Suspend stops the foreground job. The blocked foreground wait observes
// the stop, moves the job to the background and reclaims the terminal.
func (c *Controller) Suspend() error {
	j := c.table.Foreground()
	if j == nil {
		return nil
	}
	return c.signal(j, unix.SIGTSTP)
}

// Interrupt forwards an interrupt to the foreground job, if there is one.
func (c *Controller) Interrupt() error {
	j := c.table.Foreground()
	if j == nil {
		return nil
	}
	return c.signal(j, unix.SIGINT)
}
