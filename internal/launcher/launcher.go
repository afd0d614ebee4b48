package launcher

import (
	"os"
	"os/exec"
	"syscall"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"yash/internal/job"
	"yash/internal/parser"
)

var ErrNotFound = errors.New("command not found")

// NoTerminal disables terminal hand-off in the child.
const NoTerminal = -1

// Launcher forks and execs job descriptors.
type Launcher struct {
	// ctty is the shell's terminal fd, or NoTerminal when job control is off.
	ctty int
	log  log.FieldLogger
}

func New(ctty int, logger log.FieldLogger) *Launcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Launcher{ctty: ctty, log: logger}
}

func stdioFd(f *os.File, inherit *os.File) uintptr {
	if f != nil {
		return f.Fd()
	}
	return inherit.Fd()
}

// Start creates one process for d and returns its pid. The child joins
// d.Pgid, or leads a new group when it is NewGroup, and when foreground is
// set takes the terminal before exec. The shell catches rather than ignores
// the signals it customizes, so the exec resets them to their defaults.
//
// A program that cannot be executed is reported here as an error, not as an
// exit status: ForkExec waits for the exec in the child and returns its
// failure, so no process is left to be waited for and no job is created.
//
// The descriptor's own files are closed once the fork is done, whatever the
// outcome.
func (l *Launcher) Start(d *Descriptor, foreground bool) (int, error) {
	defer d.Close()

	if len(d.Argv) == 0 {
		return 0, errors.Wrap(parser.ErrMalformed, "missing command name")
	}
	path, err := exec.LookPath(d.Argv[0])
	if err != nil {
		return 0, errors.Wrap(ErrNotFound, d.Argv[0])
	}

	sys := &syscall.SysProcAttr{Setpgid: true, Pgid: d.Pgid}
	if foreground && d.Pgid == NewGroup && l.ctty != NoTerminal {
		sys.Foreground = true
		sys.Ctty = l.ctty
	}

	attr := &syscall.ProcAttr{
		Env: os.Environ(),
		Files: []uintptr{
			stdioFd(d.Stdio[0], os.Stdin),
			stdioFd(d.Stdio[1], os.Stdout),
			stdioFd(d.Stdio[2], os.Stderr),
		},
		Sys: sys,
	}

	pid, err := syscall.ForkExec(path, d.Argv, attr)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", d.Argv[0])
	}

	l.log.WithFields(log.Fields{
		"pid":        pid,
		"pgid":       d.Pgid,
		"argv":       shellquote.Join(d.Argv...),
		"foreground": sys.Foreground,
	}).Debug("Started process")
	return pid, nil
}

func placement(background bool) job.Placement {
	if background {
		return job.Background
	}
	return job.Foreground
}

// Launch turns a command line into a started, unregistered job.
//
// If the second stage of a pipeline cannot be started, the job for the
// first stage is still returned alongside the error so that the caller can
// track it.
func (l *Launcher) Launch(line string) (*job.Job, error) {
	// The whole line is checked before any redirection target is opened, so
	// a malformed line leaves existing files untouched.
	stages, err := parser.Parse(line)
	if err != nil {
		return nil, err
	}

	if len(stages) == 1 {
		d, err := Build(stages[0], NewGroup, line, Endpoints{})
		if err != nil {
			return nil, err
		}
		pid, err := l.Start(d, !d.Background)
		if err != nil {
			return nil, err
		}
		return job.New(pid, line, placement(d.Background), &job.Process{Pid: pid, Argv: d.Argv}), nil
	}

	return l.launchPipeline(line, stages[0], stages[1])
}

func (l *Launcher) launchPipeline(line string, left, right parser.Stage) (*job.Job, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "create pipe")
	}
	defer r.Close()
	defer w.Close()

	first, err := Build(left, NewGroup, line, Endpoints{Write: w})
	if err != nil {
		return nil, err
	}
	second, err := Build(right, NewGroup, line, Endpoints{Read: r})
	if err != nil {
		first.Close()
		return nil, err
	}

	background := second.Background
	leader, err := l.Start(first, !background)
	if err != nil {
		second.Close()
		return nil, err
	}
	// The writer now lives in the first stage only; the reader must see EOF
	// once that stage exits.
	w.Close()

	j := job.New(leader, line, placement(background), &job.Process{Pid: leader, Argv: first.Argv})

	second.Pgid = leader
	pid, err := l.Start(second, !background)
	if err != nil {
		return j, err
	}
	j.Processes = append(j.Processes, &job.Process{Pid: pid, Argv: second.Argv})
	return j, nil
}
