package shell

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// Caught rather than ignored: a caught disposition reverts to the default in
// every child at exec.
func (s *Shell) setupSignalHandling() {
	signal.Notify(s.signalChan, unix.SIGINT, unix.SIGTSTP, unix.SIGTTIN, unix.SIGCHLD)
	go s.handleSignals()
}

func (s *Shell) stopSignalHandling() {
	signal.Stop(s.signalChan)
	close(s.signalChan)
}

func (s *Shell) handleSignals() {
	for sig := range s.signalChan {
		switch sig {
		case unix.SIGINT:
			if err := s.control.Interrupt(); err != nil {
				s.log.WithField("error", err).Debug("Error forwarding SIGINT")
			}
		case unix.SIGTSTP:
			if err := s.control.Suspend(); err != nil {
				s.log.WithField("error", err).Debug("Error forwarding SIGTSTP")
			}
		case unix.SIGCHLD:
			s.tracker.Sweep()
		default:
			s.log.WithField("signal", sig).Debug("Ignoring signal")
		}
	}
}
