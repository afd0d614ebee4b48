package shell

// executeBuiltin runs line if it names a builtin. Builtins take no arguments,
// so anything other than an exact match falls through to the launcher.
func (s *Shell) executeBuiltin(line string) (bool, error) {
	switch line {
	case "jobs":
		return true, s.listJobs()
	case "fg":
		return true, s.control.Fg()
	case "bg":
		return true, s.control.Bg()
	case "exit":
		s.exit()
		return true, nil
	default:
		return false, nil
	}
}

func (s *Shell) listJobs() error {
	s.tracker.Sweep()
	s.control.Jobs(s.stdout)
	return nil
}

func (s *Shell) exit() {
	s.exiting = true
}
