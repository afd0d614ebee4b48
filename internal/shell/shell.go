package shell

import (
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"yash/internal/config"
	"yash/internal/job"
	"yash/internal/launcher"
	"yash/internal/terminal"
)

type Shell struct {
	config     *config.Config
	log        log.FieldLogger
	metrics    metrics.Registry
	tracker    *job.Tracker
	launcher   *launcher.Launcher
	control    *terminal.Controller
	tty        terminal.Terminal
	jobControl bool
	signalChan chan os.Signal
	reader     *readline.Instance
	stdout     io.Writer
	stderr     io.Writer
	errColor   *color.Color
	exiting    bool
}

type Option func(*Shell)

// WithOutput redirects the shell's own output, including Done notices.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Shell) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

func WithLogger(logger log.FieldLogger) Option {
	return func(s *Shell) { s.log = logger }
}

func WithMetrics(reg metrics.Registry) Option {
	return func(s *Shell) { s.metrics = reg }
}

// WithTerminal replaces the controlling terminal.
func WithTerminal(tty terminal.Terminal) Option {
	return func(s *Shell) { s.tty = tty }
}

func New(cfg *config.Config, opts ...Option) (*Shell, error) {
	s := &Shell{
		config:     cfg,
		log:        log.StandardLogger(),
		metrics:    metrics.NewRegistry(),
		signalChan: make(chan os.Signal, 8),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		errColor:   color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(s)
	}

	if f, ok := s.stderr.(*os.File); !ok || !terminal.IsTerminal(f) {
		s.errColor.DisableColor()
	}

	s.jobControl = cfg.JobControl == config.JobControlOn ||
		(cfg.JobControl == config.JobControlAuto && terminal.IsTerminal(os.Stdin))

	ctty := launcher.NoTerminal
	if s.tty == nil {
		if s.jobControl {
			tty, err := terminal.NewTTY(os.Stdin)
			if err != nil {
				return nil, errors.Wrap(err, "error initializing terminal")
			}
			s.tty = tty
		} else {
			s.tty = terminal.Detached{Pgid: unix.Getpgrp()}
		}
	}
	if s.jobControl {
		if err := s.takeTerminal(); err != nil {
			return nil, errors.Wrap(err, "error initializing job control")
		}
		ctty = s.tty.Fd()
	}

	s.tracker = job.NewTracker(job.NewTable(), job.SysWaiter{}, s.stdout, s.log, s.metrics)
	s.launcher = launcher.New(ctty, s.log)
	s.control = terminal.NewController(s.tty, unix.Getpgrp(), s.tracker, s.log)
	return s, nil
}

// takeTerminal waits until the shell is in the foreground, then moves it to
// a process group of its own and gives that group the terminal.
func (s *Shell) takeTerminal() error {
	for {
		fg, err := s.tty.Foreground()
		if err != nil {
			return err
		}
		pgrp := unix.Getpgrp()
		if fg == pgrp {
			break
		}
		// Started in the background: stop until someone foregrounds us.
		unix.Kill(-pgrp, unix.SIGTTIN)
	}

	pid := os.Getpid()
	if err := unix.Setpgid(pid, pid); err != nil && err != unix.EPERM {
		return errors.Wrap(err, "setpgid")
	}
	return s.tty.SetForeground(pid)
}

func (s *Shell) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       s.config.Prompt,
		HistoryFile:  s.config.HistoryFile,
		HistoryLimit: s.config.HistoryLimit,
	})
	if err != nil {
		return errors.Wrap(err, "error initializing readline")
	}
	s.reader = rl
	defer rl.Close()

	s.stdout = rl.Stdout()
	s.stderr = rl.Stderr()
	s.tracker.SetOutput(s.stdout)

	s.setupSignalHandling()
	defer s.stopSignalHandling()

	interruptCount := 0
	for !s.exiting {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				if interruptCount++; interruptCount >= 2 {
					break
				}
			}
			continue
		} else if err == io.EOF {
			break
		}
		interruptCount = 0

		if err := s.Execute(line); err != nil {
			s.printError(err)
		}
	}

	s.shutdown()
	return nil
}

// Execute runs one command line. Finished jobs are swept afterwards whatever
// the outcome.
func (s *Shell) Execute(input string) error {
	defer s.tracker.Sweep()

	line := strings.TrimSpace(input)
	if line == "" {
		return nil
	}
	if ok, err := s.executeBuiltin(line); ok {
		return err
	}
	return s.runJob(line)
}

func (s *Shell) printError(err error) {
	s.errColor.Fprintf(s.stderr, "yash: %v\n", err)
}

func (s *Shell) shutdown() {
	if s.jobControl {
		if err := s.control.Reclaim(); err != nil {
			s.log.WithField("error", err).Error("Error reclaiming terminal")
		}
	}

	fields := log.Fields{}
	s.metrics.Each(func(name string, m interface{}) {
		switch m := m.(type) {
		case metrics.Counter:
			fields[name] = m.Count()
		case metrics.Gauge:
			fields[name] = m.Value()
		}
	})
	s.log.WithFields(fields).Info("Shell exiting")
}
