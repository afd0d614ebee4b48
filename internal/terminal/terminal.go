package terminal

import (
	"os"
	"os/signal"

	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Terminal is the controlling terminal whose foreground process group the
// shell arbitrates.
type Terminal interface {
	Fd() int
	Foreground() (int, error)
	SetForeground(pgid int) error
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

// TTY drives a real terminal through TIOCGPGRP/TIOCSPGRP.
type TTY struct {
	fd int
}

func NewTTY(f *os.File) (*TTY, error) {
	if !IsTerminal(f) {
		return nil, errors.Errorf("%s is not a terminal", f.Name())
	}
	return &TTY{fd: int(f.Fd())}, nil
}

func (t *TTY) Fd() int {
	return t.fd
}

func (t *TTY) Foreground() (int, error) {
	pgid, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
	if err != nil {
		return 0, errors.Wrap(err, "get terminal foreground group")
	}
	return pgid, nil
}

// SetForeground hands the terminal to pgid. A process outside the
// foreground group that does this gets SIGTTOU unless it ignores it, so the
// signal is ignored for the duration of the call.
func (t *TTY) SetForeground(pgid int) error {
	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)

	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		return errors.Wrapf(err, "give terminal to process group %d", pgid)
	}
	return nil
}

// Detached stands in for a terminal when job control is off. Hand-offs are
// no-ops and the foreground group is always the shell's.
type Detached struct {
	Pgid int
}

func (Detached) Fd() int {
	return -1
}

func (d Detached) Foreground() (int, error) {
	return d.Pgid, nil
}

func (Detached) SetForeground(int) error {
	return nil
}
