package terminal

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"yash/internal/job"
	"yash/internal/launcher"
)

const shellPgid = 4242

// fakeTerminal records every hand-off.
type fakeTerminal struct {
	mu    sync.Mutex
	owner int
	calls []int
}

func (f *fakeTerminal) Fd() int { return -1 }

func (f *fakeTerminal) Foreground() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner, nil
}

func (f *fakeTerminal) SetForeground(pgid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner = pgid
	f.calls = append(f.calls, pgid)
	return nil
}

func (f *fakeTerminal) handoffs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func newTestController() (*Controller, *fakeTerminal, *job.Tracker, *bytes.Buffer) {
	var out bytes.Buffer
	tty := &fakeTerminal{owner: shellPgid}
	tracker := job.NewTracker(job.NewTable(), job.SysWaiter{}, &out, log.StandardLogger(), nil)
	return NewController(tty, shellPgid, tracker, nil), tty, tracker, &out
}

// startSelfStopping starts a process that stops itself and exits once
// continued.
func startSelfStopping(t *testing.T, tracker *job.Tracker, placement job.Placement) *job.Job {
	t.Helper()
	cmd := exec.Command("sh", "-c", "kill -STOP $$; exit 0")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	pid := cmd.Process.Pid
	j := job.New(pid, "sh -c stop", placement, &job.Process{Pid: pid, Argv: cmd.Args})
	tracker.Register(j)
	return j
}

func waitForState(t *testing.T, tracker *job.Tracker, j *job.Job, want job.State) {
	t.Helper()
	for {
		if state, _ := tracker.Table().StateOf(j); state == want {
			return
		}
		require.NoError(t, tracker.ReapOne(j, true))
	}
}

func TestForegroundRoundTrip(t *testing.T) {
	c, tty, tracker, out := newTestController()

	j, err := launcher.New(launcher.NoTerminal, nil).Launch("true")
	require.NoError(t, err)
	tracker.Register(j)

	require.NoError(t, c.Foreground(j, false))
	assert.Equal(t, []int{j.Pgid, shellPgid}, tty.handoffs())

	owner, err := tty.Foreground()
	require.NoError(t, err)
	assert.Equal(t, shellPgid, owner)

	state, _ := tracker.Table().StateOf(j)
	assert.Equal(t, job.Done, state)

	tracker.Sweep()
	assert.Equal(t, 0, tracker.Table().Len())
	assert.Empty(t, out.String(), "foreground jobs finish silently")
}

func TestForegroundPipelineRoundTrip(t *testing.T) {
	c, tty, tracker, _ := newTestController()

	out := filepath.Join(t.TempDir(), "out")
	j, err := launcher.New(launcher.NoTerminal, nil).Launch("echo hi | cat > " + out)
	require.NoError(t, err)
	tracker.Register(j)

	require.NoError(t, c.Foreground(j, false))
	assert.Equal(t, []int{j.Pgid, shellPgid}, tty.handoffs())
	state, _ := tracker.Table().StateOf(j)
	assert.Equal(t, job.Done, state)
}

func TestForegroundStopThenFg(t *testing.T) {
	c, tty, tracker, _ := newTestController()

	j := startSelfStopping(t, tracker, job.Foreground)
	require.NoError(t, c.Foreground(j, false))

	state, placement := tracker.Table().StateOf(j)
	assert.Equal(t, job.Stopped, state)
	assert.Equal(t, job.Background, placement)
	assert.Equal(t, []int{j.Pgid, shellPgid}, tty.handoffs())

	require.NoError(t, c.Fg())
	state, _ = tracker.Table().StateOf(j)
	assert.Equal(t, job.Done, state)
	assert.Equal(t, []int{j.Pgid, shellPgid, j.Pgid, shellPgid}, tty.handoffs())
}

func TestBgResumesWithoutWaiting(t *testing.T) {
	c, tty, tracker, out := newTestController()

	j := startSelfStopping(t, tracker, job.Background)
	waitForState(t, tracker, j, job.Stopped)

	require.NoError(t, c.Bg())
	state, placement := tracker.Table().StateOf(j)
	assert.Equal(t, job.Running, state)
	assert.Equal(t, job.Background, placement)
	assert.Empty(t, tty.handoffs(), "bg never touches the terminal")

	waitForState(t, tracker, j, job.Done)
	assert.Equal(t, "[1] + Done       sh -c stop\n", out.String())
}

func TestFgBgWithoutJobs(t *testing.T) {
	c, tty, _, _ := newTestController()

	assert.ErrorIs(t, c.Fg(), ErrNoCurrentJob)
	assert.ErrorIs(t, c.Bg(), ErrNoCurrentJob)
	assert.Empty(t, tty.handoffs())
}

func TestSuspendForegroundJob(t *testing.T) {
	c, tty, tracker, _ := newTestController()

	j, err := launcher.New(launcher.NoTerminal, nil).Launch("sleep 30")
	require.NoError(t, err)
	tracker.Register(j)
	defer func() {
		unix.Kill(-j.Pgid, unix.SIGKILL)
		waitForState(t, tracker, j, job.Done)
	}()

	done := make(chan error, 1)
	go func() { done <- c.Foreground(j, false) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, c.Suspend())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("foreground wait did not return after suspend")
	}

	state, placement := tracker.Table().StateOf(j)
	assert.Equal(t, job.Stopped, state)
	assert.Equal(t, job.Background, placement)
	assert.Equal(t, []int{j.Pgid, shellPgid}, tty.handoffs())
	assert.Nil(t, tracker.Table().Foreground())
	assert.NoError(t, c.Suspend(), "nothing to suspend is not an error")
}

func TestJobsListing(t *testing.T) {
	c, _, tracker, _ := newTestController()

	var out bytes.Buffer
	c.Jobs(&out)
	assert.Empty(t, out.String())

	tracker.Register(job.New(101, "sleep 100 &", job.Background, &job.Process{Pid: 101}))
	tracker.Register(job.New(102, "vim notes.txt", job.Background, &job.Process{Pid: 102, State: job.Stopped}))
	tracker.Register(job.New(103, "tail -f log | grep err &", job.Background,
		&job.Process{Pid: 103}, &job.Process{Pid: 104}))

	c.Jobs(&out)

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithTestNameForDir(true),
	)
	g.Assert(t, "three_jobs", out.Bytes())
}
