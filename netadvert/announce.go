// Package netadvert advertises a running acquisition chassis' control pipe
// over mDNS/DNS-SD, so operator tooling can find it without hardcoding the
// pipe path. Purely additive: the documented fixed path still works
// without it.
package netadvert

/*------------------------------------------------------------------
 *
 * Purpose:	Announce the control-plane service using DNS-SD, the same
 *		way any long-running network service advertises itself for
 *		discovery.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
)

// ServiceType is the DNS-SD service type this chassis advertises under.
const ServiceType = "_daq-ctrl._tcp"

// Announcer owns the DNS-SD responder goroutine.
type Announcer struct {
	responder dnssd.Responder
}

// Announce registers name (defaulting to the host's DNS-SD default service
// name if empty) under ServiceType on port, and starts responding to
// queries in the background. Callers should cancel ctx to stop responding.
func Announce(ctx context.Context, name string, port int, log Logger) (*Announcer, error) {
	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("netadvert: creating service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("netadvert: creating responder: %w", err)
	}

	if _, err := rp.Add(sv); err != nil {
		return nil, fmt.Errorf("netadvert: adding service: %w", err)
	}

	go func() {
		if err := rp.Respond(ctx); err != nil && log != nil {
			log.Errorf("netadvert: responder stopped: %v", err)
		}
	}()

	return &Announcer{responder: rp}, nil
}

// Logger is the narrow logging interface this package needs, matching
// acq.Logger's shape without importing the acq package.
type Logger interface {
	Errorf(format string, args ...any)
}
