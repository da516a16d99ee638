package launcher

import (
	"context"
	"fmt"
	"os/exec"
)

// ProcessLauncher starts a title's executable. Implementations return the
// process ID of the started process.
type ProcessLauncher interface {
	Launch(ctx context.Context, executablePath, workingDir string) (int, error)
}

// ExecLauncher starts real OS processes. The child is detached from the
// daemon's lifetime; a goroutine reaps it to avoid zombies.
type ExecLauncher struct{}

func (l *ExecLauncher) Launch(ctx context.Context, executablePath, workingDir string) (int, error) {
	cmd := exec.Command(executablePath)
	cmd.Dir = workingDir
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", executablePath, err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return cmd.Process.Pid, nil
}
