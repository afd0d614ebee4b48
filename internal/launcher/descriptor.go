package launcher

import (
	"os"

	"github.com/pkg/errors"

	"yash/internal/parser"
)

// NewGroup asks the launcher to put the process in a process group of its own.
const NewGroup = 0

// CreateMode is the permission used for files created by > and 2>.
const CreateMode os.FileMode = 0o664

// Endpoints are the pipe ends a stage is connected to. A nil end means the
// stage inherits the shell's descriptor unless a redirection overrides it.
type Endpoints struct {
	Read  *os.File
	Write *os.File
}

// Descriptor is a fully resolved stage that has not been started yet.
type Descriptor struct {
	Argv        []string
	Pgid        int
	Background  bool
	CommandLine string

	// Stdio holds overrides for fds 0, 1 and 2; nil inherits.
	Stdio [3]*os.File

	// owned are the files this descriptor opened and must close.
	owned []*os.File
}

// Build opens the redirection targets of a parsed stage. Explicit
// redirections take precedence over pipe endpoints. On error every file
// opened so far is closed again.
func Build(st parser.Stage, pgid int, commandLine string, ends Endpoints) (*Descriptor, error) {
	d := &Descriptor{
		Argv:        st.Argv,
		Pgid:        pgid,
		Background:  st.Background,
		CommandLine: commandLine,
	}

	if st.Stdin != "" {
		f, err := os.Open(st.Stdin)
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "redirect stdin")
		}
		d.own(0, f)
	} else if ends.Read != nil {
		d.Stdio[0] = ends.Read
	}

	if st.Stdout != "" {
		f, err := openOutput(st.Stdout)
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "redirect stdout")
		}
		d.own(1, f)
	} else if ends.Write != nil {
		d.Stdio[1] = ends.Write
	}

	if st.Stderr != "" {
		f, err := openOutput(st.Stderr)
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "redirect stderr")
		}
		d.own(2, f)
	}

	return d, nil
}

func openOutput(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, CreateMode)
}

func (d *Descriptor) own(fd int, f *os.File) {
	d.Stdio[fd] = f
	d.owned = append(d.owned, f)
}

// Close releases the files the descriptor opened. Pipe ends are left to
// whoever created the pipe.
func (d *Descriptor) Close() error {
	var first error
	for _, f := range d.owned {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.owned = nil
	return first
}
