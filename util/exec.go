package util

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// ExitCode runs command to completion and returns its exit status. err is set
// only when the command could not be run or was stopped by ctx.
func ExitCode(ctx context.Context, command string, args ...string) (code int, err error) {
	logrus.Tracef("EXEC: %v %v", command, args)

	cmd := exec.CommandContext(ctx, command, args...)
	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb
	// Children that inherit the output pipes must not outlive ctx
	cmd.WaitDelay = 500 * time.Millisecond

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		logrus.Tracef("EXEC: %v exited %d: %s", command, exitErr.ExitCode(), errb.String())
		return exitErr.ExitCode(), nil
	}

	return -1, err
}
