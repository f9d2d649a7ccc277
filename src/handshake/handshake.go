// Package handshake implements the CDTunnel framed JSON handshake
// codec: an 8-byte magic, a 2-byte big-endian length, and a UTF-8 JSON
// payload, the same fixed-header-then-payload shape as Reflex's wire
// framing, generalized to this protocol's magic and length field.
package handshake

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"

	"github.com/mitchellh/mapstructure"

	"github.com/appium/appium-ios-tuntap/src/configurator"
	"github.com/appium/appium-ios-tuntap/src/defaults"
	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// MagicLen is the length of the fixed magic prefix.
const MagicLen = 8

// Magic is the literal byte string every frame starts with.
var Magic = [MagicLen]byte{'C', 'D', 'T', 'u', 'n', 'n', 'e', 'l'}

// MaxPayloadLen is the largest payload the 2-byte big-endian length
// field can express.
const MaxPayloadLen = 65535

// Request is the client's opening handshake message.
type Request struct {
	Type string `json:"type"`
	MTU  int    `json:"mtu"`
}

// NewRequest builds the standard clientHandshakeRequest.
func NewRequest(mtu int) Request {
	return Request{Type: "clientHandshakeRequest", MTU: mtu}
}

// ClientParameters is the address/MTU the server assigns the client.
type ClientParameters struct {
	Address string `mapstructure:"address"`
	MTU     int    `mapstructure:"mtu"`
}

// Response is the server's reply, decoded leniently: unknown fields
// are ignored, and ServerRSDPort is optional.
type Response struct {
	ClientParameters ClientParameters `mapstructure:"clientParameters"`
	ServerAddress    string           `mapstructure:"serverAddress"`
	ServerRSDPort    int              `mapstructure:"serverRSDPort"`
}

// TunnelParameters is the validated result of a handshake exchange:
// both addresses parse as IPv6 and MTU falls inside
// [defaults.MinMTU, defaults.MaxMTU]. It is produced once, by
// newTunnelParameters, and never mutated afterward.
type TunnelParameters struct {
	ClientAddress netip.Addr
	MTU           int
	ServerAddress netip.Addr
	ServerRSDPort int
}

// newTunnelParameters validates a decoded Response into
// TunnelParameters. An address that doesn't parse as IPv6, or an MTU
// outside the accepted range, fails the handshake with ProtocolError
// rather than being silently clamped or coerced.
func newTunnelParameters(resp Response) (TunnelParameters, error) {
	clientAddr, err := configurator.ParseIPv6(resp.ClientParameters.Address)
	if err != nil {
		return TunnelParameters{}, tunerr.Wrapf(tunerr.ProtocolError, err, "handshake clientParameters.address")
	}
	serverAddr, err := configurator.ParseIPv6(resp.ServerAddress)
	if err != nil {
		return TunnelParameters{}, tunerr.Wrapf(tunerr.ProtocolError, err, "handshake serverAddress")
	}
	if resp.ClientParameters.MTU < defaults.MinMTU || resp.ClientParameters.MTU > defaults.MaxMTU {
		return TunnelParameters{}, tunerr.New(tunerr.ProtocolError, fmt.Sprintf(
			"handshake mtu %d outside [%d, %d]", resp.ClientParameters.MTU, defaults.MinMTU, defaults.MaxMTU))
	}
	return TunnelParameters{
		ClientAddress: clientAddr,
		MTU:           resp.ClientParameters.MTU,
		ServerAddress: serverAddr,
		ServerRSDPort: resp.ServerRSDPort,
	}, nil
}

// EncodeFrame wraps payload in the magic+length header.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, tunerr.New(tunerr.ProtocolError, "handshake payload exceeds maximum length")
	}
	out := make([]byte, MagicLen+2+len(payload))
	copy(out, Magic[:])
	binary.BigEndian.PutUint16(out[MagicLen:MagicLen+2], uint16(len(payload)))
	copy(out[MagicLen+2:], payload)
	return out, nil
}

// ReadFrame reads one magic+length+payload frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, MagicLen+2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, tunerr.Wrap(tunerr.ProtocolError, err)
	}
	for i := 0; i < MagicLen; i++ {
		if header[i] != Magic[i] {
			return nil, tunerr.New(tunerr.ProtocolError, "bad handshake magic")
		}
	}
	length := binary.BigEndian.Uint16(header[MagicLen : MagicLen+2])
	if int(length) > MaxPayloadLen {
		return nil, tunerr.New(tunerr.ProtocolError, "handshake payload exceeds maximum length")
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, tunerr.Wrap(tunerr.ProtocolError, err)
	}
	return payload, nil
}

// EncodeRequest marshals req into a ready-to-write frame.
func EncodeRequest(req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, tunerr.Wrap(tunerr.ProtocolError, err)
	}
	return EncodeFrame(payload)
}

// DecodeResponse parses a frame's payload into a Response, tolerating
// unknown JSON fields the way the teacher's config overlay decode does.
func DecodeResponse(payload []byte) (Response, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Response{}, tunerr.Wrap(tunerr.ProtocolError, err)
	}
	var resp Response
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &resp,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Response{}, tunerr.Wrap(tunerr.ProtocolError, err)
	}
	if err := dec.Decode(raw); err != nil {
		return Response{}, tunerr.Wrap(tunerr.ProtocolError, err)
	}
	if resp.ClientParameters.Address == "" {
		return Response{}, tunerr.New(tunerr.ProtocolError, fmt.Sprintf("handshake response missing clientParameters.address: %s", payload))
	}
	return resp, nil
}
