package librespot

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voxspot/internal/core"
)

type shell struct {
	mu     sync.Mutex
	script string
	args   [][]string
	cmds   []*exec.Cmd
}

func (s *shell) command(path string, args ...string) *exec.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args = append(s.args, append([]string{path}, args...))
	cmd := exec.Command("/bin/sh", "-c", s.script)
	s.cmds = append(s.cmds, cmd)
	return cmd
}

func newTestLauncher(script string) (*Launcher, *shell) {
	sh := &shell{script: script}
	l := NewLauncher(50*time.Millisecond, time.Second, zap.NewNop())
	l.newCmd = sh.command
	return l, sh
}

var opts = Options{Path: "/usr/bin/librespot", DeviceName: "kitchen", User: "alice", Password: "secret"}

func TestLaunchStartsHelper(t *testing.T) {
	l, sh := newTestLauncher("exec sleep 30")
	defer l.Stop()

	require.NoError(t, l.Launch(context.Background(), opts))

	assert.True(t, l.Alive())
	assert.Equal(t, "kitchen", l.DeviceName())
	require.Len(t, sh.args, 1)
	assert.Equal(t, []string{"/usr/bin/librespot", "-n", "kitchen", "-u", "alice", "-p", "secret"}, sh.args[0])
}

func TestLaunchDefaultsPath(t *testing.T) {
	l, sh := newTestLauncher("exec sleep 30")
	defer l.Stop()

	require.NoError(t, l.Launch(context.Background(), Options{DeviceName: "kitchen"}))
	assert.Equal(t, DefaultPath, sh.args[0][0])
}

func TestLaunchEarlyExitIsAuthFailure(t *testing.T) {
	l, _ := newTestLauncher("exit 1")

	err := l.Launch(context.Background(), opts)

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrHelperExited))
	name, _ := core.DialogFor(err)
	assert.Equal(t, core.DialogNotAuthorized, name)
	assert.False(t, l.Alive())
	assert.Empty(t, l.DeviceName())
}

func TestLaunchTwiceKeepsOneProcess(t *testing.T) {
	l, sh := newTestLauncher("exec sleep 30")
	defer l.Stop()
	ctx := context.Background()

	require.NoError(t, l.Launch(ctx, opts))
	first := l.proc
	require.NoError(t, l.Launch(ctx, opts))

	assert.True(t, first.exited(), "first helper must be terminated and reaped")
	assert.NotSame(t, first, l.proc)
	assert.True(t, l.Alive())
	assert.Len(t, sh.cmds, 2)
}

func TestStopReapsProcess(t *testing.T) {
	l, _ := newTestLauncher("exec sleep 30")

	require.NoError(t, l.Launch(context.Background(), opts))
	p := l.proc
	l.Stop()

	assert.False(t, l.Alive())
	assert.True(t, p.exited())
	assert.NotNil(t, p.cmd.ProcessState, "process state is only set once reaped")

	// stopping again is a no-op
	l.Stop()
}

func TestStopKillsAfterGrace(t *testing.T) {
	l, _ := newTestLauncher(`trap "" TERM; while true; do sleep 0.01; done`)
	l.grace = 50 * time.Millisecond

	require.NoError(t, l.Launch(context.Background(), opts))
	p := l.proc

	start := time.Now()
	l.Stop()

	assert.True(t, p.exited())
	assert.GreaterOrEqual(t, time.Since(start), l.grace)
}

func TestLaunchCancelled(t *testing.T) {
	l, _ := newTestLauncher("exec sleep 30")
	l.settle = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := l.Launch(ctx, opts)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, l.Alive())
}
