package job

import (
	"golang.org/x/sys/unix"
)

const (
	blockingOptions    = unix.WUNTRACED | unix.WCONTINUED
	nonBlockingOptions = unix.WNOHANG | unix.WUNTRACED | unix.WCONTINUED
)

// Waiter queries the OS for child status changes.
type Waiter interface {
	Wait4(pid int, options int) (int, unix.WaitStatus, error)
}

// SysWaiter is the Waiter backed by wait4(2).
type SysWaiter struct{}

func (SysWaiter) Wait4(pid int, options int) (int, unix.WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		if err == unix.EINTR {
			continue
		}
		return wpid, ws, err
	}
}

type Event int

const (
	EventNone Event = iota
	EventContinued
	EventStopped
	EventExited
)

func (e Event) String() string {
	switch e {
	case EventContinued:
		return "continued"
	case EventStopped:
		return "stopped"
	case EventExited:
		return "exited"
	}
	return "none"
}

// Classify maps a wait status onto the transitions a job can make. Killed
// processes count as exited.
func Classify(ws unix.WaitStatus) Event {
	switch {
	case ws.Continued():
		return EventContinued
	case ws.Stopped():
		return EventStopped
	case ws.Exited(), ws.Signaled():
		return EventExited
	}
	return EventNone
}
