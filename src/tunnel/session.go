// Package tunnel implements the Forwarder / Tunnel Manager: it owns a
// virtual interface handle and a remote byte-stream endpoint, and
// bridges packets between them through the demultiplexer and fanout.
package tunnel

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/Arceliar/phony"
	"github.com/gologme/log"

	"github.com/appium/appium-ios-tuntap/src/configurator"
	"github.com/appium/appium-ios-tuntap/src/defaults"
	"github.com/appium/appium-ios-tuntap/src/demux"
	"github.com/appium/appium-ios-tuntap/src/fanout"
	"github.com/appium/appium-ios-tuntap/src/handshake"
	"github.com/appium/appium-ios-tuntap/src/iface"
	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Endpoint is the remote byte stream the Session forwards IPv6
// datagrams to and from, e.g. a TCP or TLS connection to the device.
// Close must unblock any goroutine parked in Read/Write, the way a
// closed net.Conn does, so stop() can synchronously release
// ingress's blocking Read.
type Endpoint interface {
	handshake.ReadWriter
	Close() error
}

// State is a Session's position in its lifecycle, spec.md §4.5:
// Created -> Configured -> Forwarding -> Stopping -> Stopped.
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateForwarding
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateForwarding:
		return "forwarding"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session coordinates one tunnel: a Handle, a Configurator, and a
// remote Endpoint. The demultiplexer is only touched on its
// phony.Inbox (ingress feeds it and Stop resets it there), the same
// single-threaded-actor discipline the teacher's TunAdapter uses for
// its reader/writer bookkeeping; lifecycle state and addresses are
// guarded by mu.
type Session struct {
	phony.Inbox

	log    *log.Logger
	iface  iface.Handle
	cfg    configurator.Configurator
	ep     Endpoint
	fanout *fanout.Fanout
	demux  *demux.Demultiplexer

	mu         sync.Mutex
	state      State
	sd         *shutdown
	mtu        int
	clientAddr netip.Addr
	serverAddr netip.Addr
}

// NewSession constructs a Session in StateCreated. handle and cfg are
// normally produced by iface.Open and configurator.New respectively.
func NewSession(handle iface.Handle, cfg configurator.Configurator, ep Endpoint, logger *log.Logger) *Session {
	s := &Session{
		log:    logger,
		iface:  handle,
		cfg:    cfg,
		ep:     ep,
		fanout: fanout.New(),
		demux:  demux.New(),
		sd:     newShutdown(),
		state:  StateCreated,
	}
	registerSession(s)
	return s
}

// State returns the Session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Fanout exposes the packet subscription fanout for external
// observers.
func (s *Session) Fanout() *fanout.Fanout {
	return s.fanout
}

// Handshake performs the client handshake over ep and then runs
// setupInterface: it applies the returned address/MTU to the
// interface and installs a /128 host route for serverAddress,
// transitioning Created -> Configured.
func (s *Session) Handshake(ctx context.Context, requestedMTU int) (handshake.TunnelParameters, error) {
	if s.State() != StateCreated {
		return handshake.TunnelParameters{}, tunerr.New(tunerr.InvalidArgument, "Handshake called outside the Created state")
	}
	params, err := handshake.Perform(ctx, s.ep, handshake.NewRequest(requestedMTU))
	if err != nil {
		return handshake.TunnelParameters{}, err
	}
	if err := s.setupInterface(params); err != nil {
		return handshake.TunnelParameters{}, err
	}
	return params, nil
}

// setupInterface opens the driver configuration path implied by
// validated TunnelParameters: it configures the client address/MTU on
// the interface and adds a /128 host route for serverAddress. Any
// failure surfaces a SetupFailed and leaves the Session in Created.
// Nothing is undone on failure: an address already applied before a
// failed AddRoute stays on the interface, and the handle stays open.
func (s *Session) setupInterface(params handshake.TunnelParameters) error {
	if err := s.cfg.Configure(configurator.Params{
		IfName:  s.iface.Name(),
		Address: params.ClientAddress,
		Prefix:  64,
		MTU:     params.MTU,
	}); err != nil {
		return tunerr.Wrap(tunerr.SetupFailed, err)
	}
	route := configurator.Route{Destination: netip.PrefixFrom(params.ServerAddress, 128)}
	if err := s.cfg.AddRoute(s.iface.Name(), route); err != nil {
		return tunerr.Wrap(tunerr.SetupFailed, err)
	}

	s.mtu = params.MTU
	s.mu.Lock()
	s.clientAddr = params.ClientAddress
	s.serverAddr = params.ServerAddress
	s.mu.Unlock()
	s.setState(StateConfigured)
	return nil
}

// Start begins forwarding packets in both directions. It transitions
// Configured -> Forwarding and returns immediately; select on Done to
// block for completion.
func (s *Session) Start(ctx context.Context) error {
	if s.State() != StateConfigured {
		return tunerr.New(tunerr.InvalidArgument, "Start called outside the Configured state")
	}
	s.setState(StateForwarding)
	go s.ingress(ctx)
	go s.egress(ctx)
	go func() {
		select {
		case <-ctx.Done():
			s.Stop(context.Cause(ctx))
		case <-s.sd.Finished():
		}
	}()
	return nil
}

// ingress is the peer->interface direction: bytes arriving on the
// stream are fed to the demultiplexer, every complete datagram is
// written to the interface, and its PacketRecord is published to the
// fanout when it parses as TCP/UDP. A bad interface write is logged
// and swallowed so one misbehaving packet never tears down the
// tunnel; a stream read failure terminates it.
func (s *Session) ingress(ctx context.Context) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-s.sd.Finished():
			return
		default:
		}
		n, err := s.ep.Read(buf)
		if err != nil {
			s.log.Warnln("tunnel: stream read failed:", err)
			s.Stop(err)
			return
		}
		if n == 0 {
			time.Sleep(defaults.Get().EgressPollInterval)
			continue
		}
		phony.Block(s, func() {
			for _, d := range s.demux.Feed(buf[:n]) {
				if _, werr := s.iface.Write(d); werr != nil {
					s.log.Warnln("tunnel: interface write failed:", werr)
					continue
				}
				if rec, ok := demux.ParseL4(d); ok {
					s.fanout.Publish(rec)
				}
			}
		})
	}
}

// egress is the interface->peer direction: it polls the interface at
// a fixed interval with a bounded read budget and writes whatever it
// gets to the stream. It stops when canceled or the interface closes;
// a stream write failure terminates the tunnel.
func (s *Session) egress(ctx context.Context) {
	poll := defaults.Get().EgressPollInterval
	const readBudget = 16384
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-s.sd.Finished():
			return
		case <-ticker.C:
		}
		raw, err := s.iface.Read(readBudget)
		if err != nil {
			s.log.Warnln("tunnel: interface read failed:", err)
			s.Stop(err)
			return
		}
		if len(raw) == 0 {
			continue
		}
		if _, err := s.ep.Write(raw); err != nil {
			s.log.Warnln("tunnel: stream write failed:", err)
			s.Stop(err)
			return
		}
	}
}

// Stop is the stop() operation: idempotent, it cancels the session
// (unblocking ingress's and egress's Finished() selects), destroys the
// stream socket and closes the interface, and clears the
// demultiplexer buffer and fanout subscribers/pending records. A
// re-entrant call observes the same completion the first call
// produced.
func (s *Session) Stop(cause error) error {
	s.setState(StateStopping)
	if cause == nil {
		cause = errStopped
	}
	s.sd.Cancel(cause)
	s.ep.Close()
	phony.Block(s, func() {
		s.demux.Reset()
	})
	s.fanout.Reset()
	s.iface.Close()
	s.setState(StateStopped)
	unregisterSession(s)
	return s.sd.Error()
}

// Done returns a channel closed once the Session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.sd.Finished()
}

// Stats reports interface traffic counters via the Configurator.
func (s *Session) Stats() (configurator.Stats, error) {
	return s.cfg.Stats(s.iface.Name())
}

// Address returns the server address the session was configured with
// (the handshake's serverAddress), the same value spec.md §8's
// end-to-end scenario reports as the session's Address.
func (s *Session) Address() netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverAddr
}

// ClientAddress returns the address configured on the virtual
// interface (the handshake's clientParameters.address), or the zero
// value before Handshake completes.
func (s *Session) ClientAddress() netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientAddr
}
