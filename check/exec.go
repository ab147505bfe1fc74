package check

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/thetooth/pingwindow/util"
)

// Execer probes by running the system ping utility once per probe and
// classifying its exit status. Ping enforces the reply timeout itself, ctx
// only bounds the process.
type Execer struct {
	Path string
	Args func(Request) []string
}

func NewExecer() *Execer {
	return &Execer{Path: "ping", Args: PingArgs}
}

// PingArgs builds iputils style arguments for a single echo request.
func PingArgs(req Request) []string {
	wait := int((req.Timeout + time.Second - 1) / time.Second)
	if wait < 1 {
		wait = 1
	}
	args := []string{"-c", "1", "-s", strconv.Itoa(req.Size), "-W", strconv.Itoa(wait)}
	if req.Source != "" {
		args = append(args, "-I", req.Source)
	}
	return append(args, req.Target)
}

func (e *Execer) Check(ctx context.Context, req Request) (Result, error) {
	code, err := util.ExitCode(ctx, e.Path, e.Args(req)...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Status: Unreachable, Code: -1}, nil
		}
		return Result{}, err
	}

	switch code {
	case 0:
		return Result{Status: Reachable}, nil
	case 1, 2:
		// 1: no reply at all, 2: other error (see man ping)
		return Result{Status: Unreachable, Code: code}, nil
	default:
		return Result{Status: Error, Code: code}, nil
	}
}
