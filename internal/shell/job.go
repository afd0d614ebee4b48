package shell

import (
	"yash/internal/job"
)

// runJob launches line and either waits for it or announces it as running
// in the background. A pipeline whose second stage failed still yields the
// first stage, which is tracked like any other job.
func (s *Shell) runJob(line string) error {
	j, err := s.launcher.Launch(line)
	if j == nil {
		return err
	}
	if err != nil {
		s.printError(err)
	}

	s.tracker.Announce(j)
	if j.Placement == job.Background {
		return nil
	}
	return s.control.Foreground(j, false)
}
