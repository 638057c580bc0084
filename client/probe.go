package client

import (
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const defaultProbeTimeout = 200 * time.Millisecond

// ProbeHost sends one unprivileged ICMP echo at host and reports whether it
// answered in time. Front ends can call this before dialing to distinguish
// an unreachable host from a server that is down. timeout <= 0 selects a
// short default.
func ProbeHost(host string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		return fmt.Errorf("probe of %s failed: %w", host, err)
	}
	if pinger.Statistics().PacketsRecv == 0 {
		return fmt.Errorf("host %s did not answer within %v", host, timeout)
	}
	return nil
}
