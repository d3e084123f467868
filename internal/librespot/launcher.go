// Package librespot manages the local librespot process that exposes this
// host as a Spotify Connect device.
package librespot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"voxspot/internal/core"
)

// DefaultPath is used when no binary path is configured.
const DefaultPath = "librespot"

// Options describe one helper launch.
type Options struct {
	Path       string
	DeviceName string
	User       string
	Password   string
}

func (o Options) args() []string {
	return []string{"-n", o.DeviceName, "-u", o.User, "-p", o.Password}
}

type process struct {
	cmd    *exec.Cmd
	device string
	done   chan struct{}
	err    error
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Launcher owns at most one live helper process.
type Launcher struct {
	settle time.Duration
	grace  time.Duration
	logger *zap.Logger

	newCmd func(path string, args ...string) *exec.Cmd

	// launchMu serializes Launch and Stop; mu guards proc.
	launchMu sync.Mutex
	mu       sync.Mutex
	proc     *process
}

// NewLauncher creates a launcher. settle is how long Launch watches a new
// process for an early exit; grace is how long Stop waits after SIGTERM.
func NewLauncher(settle, grace time.Duration, logger *zap.Logger) *Launcher {
	return &Launcher{
		settle: settle,
		grace:  grace,
		logger: logger,
		newCmd: exec.Command,
	}
}

// Launch terminates any previous process and starts a new one. It blocks for
// the settle time. A process that exits during that window is reported as
// core.ErrHelperExited, which usually means the credentials were rejected.
func (l *Launcher) Launch(ctx context.Context, opts Options) error {
	l.launchMu.Lock()
	defer l.launchMu.Unlock()

	l.terminate()

	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	cmd := l.newCmd(opts.Path, opts.args()...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", opts.Path, err)
	}

	p := &process{cmd: cmd, device: opts.DeviceName, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	l.mu.Lock()
	l.proc = p
	l.mu.Unlock()

	l.logger.Info("Started librespot",
		zap.String("device", opts.DeviceName),
		zap.Int("pid", cmd.Process.Pid))

	settle := time.NewTimer(l.settle)
	defer settle.Stop()

	select {
	case <-p.done:
		l.logger.Warn("librespot exited during startup",
			zap.String("device", opts.DeviceName),
			zap.Error(p.err))
		l.clear(p)
		if p.err != nil {
			return fmt.Errorf("%w: %w", core.ErrHelperExited, p.err)
		}
		return core.ErrHelperExited
	case <-ctx.Done():
		l.terminate()
		return ctx.Err()
	case <-settle.C:
		return nil
	}
}

// Alive reports whether the current process is still running.
func (l *Launcher) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.proc != nil && !l.proc.exited()
}

// DeviceName returns the Connect device name of the current process.
func (l *Launcher) DeviceName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.proc == nil {
		return ""
	}
	return l.proc.device
}

// Stop terminates and reaps the current process, if any.
func (l *Launcher) Stop() {
	l.launchMu.Lock()
	defer l.launchMu.Unlock()
	l.terminate()
}

// terminate sends SIGTERM, escalates to SIGKILL after the grace period and
// waits for the process to be reaped. Callers hold launchMu.
func (l *Launcher) terminate() {
	l.mu.Lock()
	p := l.proc
	l.proc = nil
	l.mu.Unlock()

	if p == nil || p.exited() {
		return
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		l.logger.Debug("Failed to signal librespot", zap.Error(err))
	}

	grace := time.NewTimer(l.grace)
	defer grace.Stop()

	select {
	case <-p.done:
	case <-grace.C:
		l.logger.Warn("librespot ignored SIGTERM, killing", zap.String("device", p.device))
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	l.logger.Info("Stopped librespot", zap.String("device", p.device))
}

func (l *Launcher) clear(p *process) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.proc == p {
		l.proc = nil
	}
}
