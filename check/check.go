package check

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnrecognized marks a probe result that is neither a reply nor a known
// failure.
var ErrUnrecognized = errors.New("unrecognized probe result")

// Status is the tri-state outcome of a single probe.
type Status int

const (
	Reachable Status = iota
	Unreachable
	Error
)

func (s Status) String() string {
	switch s {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Request describes one probe.
type Request struct {
	// Target is a host name or address.
	Target string

	// Interval is the configured spacing between probes.
	Interval time.Duration

	// Timeout bounds how long the probe may wait for a reply.
	Timeout time.Duration

	// Size is the number of payload bytes.
	Size int

	// Source is an optional interface name to send from.
	Source string
}

// Result is what a checker observed for one probe.
type Result struct {
	Status Status

	// Code is the raw exit status or ICMP code behind the status, when there is one.
	Code int

	// RTT is the round-trip time of a reply.
	RTT time.Duration
}

// Err describes an Error result. It is nil for other statuses.
func (r Result) Err() error {
	if r.Status != Error {
		return nil
	}
	return fmt.Errorf("%w: code %d", ErrUnrecognized, r.Code)
}

// Checker performs a single reachability probe. A returned error means the
// probe could not be carried out at all; unreachable hosts are reported
// through Result.
type Checker interface {
	Check(ctx context.Context, req Request) (Result, error)
}

// New returns the checker backend called kind.
func New(kind string, privileged bool) (Checker, error) {
	switch kind {
	case "exec":
		return NewExecer(), nil
	case "icmp":
		return NewPinger(privileged), nil
	case "probing":
		return NewProBing(privileged), nil
	default:
		return nil, fmt.Errorf("unsupported check type %q", kind)
	}
}

// PacketSize returns the payload size backend kind really sends when asked
// for size bytes. Both socket backends need room for their own timestamp.
func PacketSize(kind string, size int) int {
	switch kind {
	case "icmp":
		return max(size, timeSliceLength)
	case "probing":
		return max(size, minProBingSize)
	default:
		return size
	}
}
