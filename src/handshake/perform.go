package handshake

import (
	"context"
	"io"
	"time"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Timeout bounds a single handshake exchange.
const Timeout = 30 * time.Second

// ReadWriter is the minimal transport Perform needs: a single
// bidirectional byte stream, such as the socket the tunnel manager
// holds open to the remote endpoint.
type ReadWriter interface {
	io.Reader
	io.Writer
}

// Perform writes the client handshake request and blocks for the
// server's response, honoring ctx and a 30-second deadline, whichever
// elapses first. The response is decoded and validated into
// TunnelParameters before returning, so an out-of-range MTU or an
// address that doesn't parse as IPv6 fails the handshake instead of
// reaching the caller as loosely-typed data.
func Perform(ctx context.Context, rw ReadWriter, req Request) (TunnelParameters, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	frame, err := EncodeRequest(req)
	if err != nil {
		return TunnelParameters{}, err
	}
	if _, err := rw.Write(frame); err != nil {
		return TunnelParameters{}, tunerr.Wrap(tunerr.ProtocolError, err)
	}

	type result struct {
		payload []byte
		err     error
	}
	done := make(chan result, 1)
	go func() {
		payload, err := ReadFrame(rw)
		done <- result{payload, err}
	}()

	select {
	case <-ctx.Done():
		return TunnelParameters{}, tunerr.Wrap(tunerr.HandshakeTimeout, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return TunnelParameters{}, r.err
		}
		resp, err := DecodeResponse(r.payload)
		if err != nil {
			return TunnelParameters{}, err
		}
		return newTunnelParameters(resp)
	}
}
