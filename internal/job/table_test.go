package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(pid int, cmd string, placement Placement) *Job {
	return New(pid, cmd, placement, &Process{Pid: pid, Argv: []string{cmd}})
}

func finishJob(j *Job) {
	for _, p := range j.Processes {
		p.State = Done
	}
}

func TestTableNumbering(t *testing.T) {
	table := NewTable()
	a := newJob(10, "a", Background)
	b := newJob(20, "b", Background)
	c := newJob(30, "c", Background)

	assert.Equal(t, 1, table.Add(a))
	assert.Equal(t, 2, table.Add(b))
	assert.Equal(t, 3, table.Add(c))

	// Numbers are the running max plus one, so removing the newest job
	// frees its number.
	finishJob(c)
	require.Equal(t, []*Job{c}, table.removeDone())
	assert.Equal(t, 3, table.Add(newJob(40, "d", Background)))

	finishJob(a)
	require.Equal(t, []*Job{a}, table.removeDone())
	assert.Equal(t, 4, table.Add(newJob(50, "e", Background)))
	assert.Equal(t, 2, b.Number)
}

func TestTableRemoveDone(t *testing.T) {
	table := NewTable()
	jobs := []*Job{newJob(1, "a", Background), newJob(2, "b", Background), newJob(3, "c", Background)}
	for _, j := range jobs {
		table.Add(j)
	}

	assert.Empty(t, table.removeDone())

	finishJob(jobs[2])
	assert.Equal(t, []*Job{jobs[2]}, table.removeDone())
	assert.Equal(t, []*Job{jobs[0], jobs[1]}, table.Jobs())
	assert.Equal(t, jobs[1], table.Current())

	finishJob(jobs[0])
	assert.Equal(t, []*Job{jobs[0]}, table.removeDone())
	assert.Equal(t, []*Job{jobs[1]}, table.Jobs())
	assert.Empty(t, table.removeDone(), "removed jobs are not removed twice")

	finishJob(jobs[1])
	assert.Equal(t, []*Job{jobs[1]}, table.removeDone())
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Current())
}

func TestTableForeground(t *testing.T) {
	table := NewTable()
	assert.Nil(t, table.Foreground())

	fg := newJob(1, "vim", Foreground)
	table.Add(fg)
	table.Add(newJob(2, "sleep 10 &", Background))
	assert.Equal(t, fg, table.Foreground())

	table.Do(func() { fg.Processes[0].State = Done })
	assert.Nil(t, table.Foreground())
}

func TestJobState(t *testing.T) {
	j := New(1, "a | b", Foreground, &Process{Pid: 1}, &Process{Pid: 2})
	assert.Equal(t, Running, j.State())

	j.Processes[0].State = Done
	assert.Equal(t, Running, j.State())

	j.Processes[1].State = Stopped
	assert.Equal(t, Stopped, j.State())

	j.Resume()
	assert.Equal(t, Running, j.State())
	assert.Equal(t, Done, j.Processes[0].State)

	j.Processes[1].State = Done
	assert.Equal(t, Done, j.State())
}
