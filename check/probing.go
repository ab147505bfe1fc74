package check

import (
	"context"
	"errors"
	"fmt"

	probing "github.com/prometheus-community/pro-bing"
)

// pro-bing needs room for its own timestamp and tracker in the payload.
const minProBingSize = 24

// ProBing probes with a single pro-bing echo request.
type ProBing struct {
	Privileged bool
}

func NewProBing(privileged bool) *ProBing {
	return &ProBing{Privileged: privileged}
}

func (p *ProBing) Check(ctx context.Context, req Request) (Result, error) {
	pinger, err := p.pinger(req)
	if err != nil {
		return Result{}, err
	}
	defer pinger.Stop()

	if err := pinger.RunWithContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Status: Unreachable, Code: -1}, nil
		}
		return Result{}, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return Result{Status: Reachable, RTT: stats.AvgRtt}, nil
	}
	return Result{Status: Unreachable}, nil
}

func (p *ProBing) pinger(req Request) (*probing.Pinger, error) {
	pinger, err := probing.NewPinger(req.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinger: %w", err)
	}
	pinger.SetPrivileged(p.Privileged)
	pinger.SetLogger(probing.NoopLogger{})
	pinger.RecordRtts = false

	pinger.Count = 1
	pinger.Size = PacketSize("probing", req.Size)
	if req.Interval > 0 {
		pinger.Interval = req.Interval
	}
	if req.Timeout > 0 {
		pinger.Timeout = req.Timeout
	}
	pinger.InterfaceName = req.Source

	return pinger, nil
}
