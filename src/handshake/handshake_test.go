package handshake

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/netip"
	"testing"
	"time"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

func TestEncodeFrameLayout(t *testing.T) {
	frame, err := EncodeFrame([]byte("{}"))
	if err != nil {
		t.Fatalf("EncodeFrame returned %v, want nil", err)
	}
	if !bytes.Equal(frame[:MagicLen], Magic[:]) {
		t.Fatalf("magic mismatch: %x", frame[:MagicLen])
	}
	length := binary.BigEndian.Uint16(frame[MagicLen : MagicLen+2])
	if length != 2 {
		t.Fatalf("length field = %d, want 2", length)
	}
	if string(frame[MagicLen+2:]) != "{}" {
		t.Fatalf("payload = %q, want {}", frame[MagicLen+2:])
	}
}

func TestReadFrameRoundTrip(t *testing.T) {
	frame, _ := EncodeFrame([]byte(`{"type":"clientHandshakeRequest","mtu":16000}`))
	payload, err := ReadFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadFrame returned %v, want nil", err)
	}
	if string(payload) != `{"type":"clientHandshakeRequest","mtu":16000}` {
		t.Fatalf("payload = %q", payload)
	}
}

func TestReadFrameRejectsBadMagic(t *testing.T) {
	frame, _ := EncodeFrame([]byte("{}"))
	frame[0] = 'X'
	_, err := ReadFrame(bytes.NewReader(frame))
	if !tunerr.Is(err, tunerr.ProtocolError) {
		t.Fatalf("error %v is not ProtocolError", err)
	}
}

func TestReadFrameRejectsTruncatedPayload(t *testing.T) {
	frame, _ := EncodeFrame([]byte(`{"a":1}`))
	truncated := frame[:len(frame)-3]
	_, err := ReadFrame(bytes.NewReader(truncated))
	if !tunerr.Is(err, tunerr.ProtocolError) {
		t.Fatalf("error %v is not ProtocolError", err)
	}
}

func TestDecodeResponseTolerantOfUnknownFields(t *testing.T) {
	payload := []byte(`{"clientParameters":{"address":"fd00::2","mtu":16000},"serverAddress":"fd00::1","extraField":"ignored"}`)
	resp, err := DecodeResponse(payload)
	if err != nil {
		t.Fatalf("DecodeResponse returned %v, want nil", err)
	}
	if resp.ClientParameters.Address != "fd00::2" || resp.ClientParameters.MTU != 16000 {
		t.Fatalf("clientParameters = %+v", resp.ClientParameters)
	}
	if resp.ServerAddress != "fd00::1" {
		t.Fatalf("serverAddress = %q", resp.ServerAddress)
	}
	if resp.ServerRSDPort != 0 {
		t.Fatalf("serverRSDPort = %d, want 0 (absent)", resp.ServerRSDPort)
	}
}

func TestDecodeResponseRejectsMissingAddress(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"serverAddress":"fd00::1"}`))
	if !tunerr.Is(err, tunerr.ProtocolError) {
		t.Fatalf("error %v is not ProtocolError", err)
	}
}

func TestDecodeResponseRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeResponse([]byte(`not json`))
	if !tunerr.Is(err, tunerr.ProtocolError) {
		t.Fatalf("error %v is not ProtocolError", err)
	}
}

// fakeConn is an in-memory ReadWriter pairing a request capture buffer
// with a canned response frame.
type fakeConn struct {
	written  bytes.Buffer
	response *bytes.Reader
}

func (f *fakeConn) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakeConn) Read(p []byte) (int, error)  { return f.response.Read(p) }

func TestPerformRoundTrip(t *testing.T) {
	respFrame, _ := EncodeFrame([]byte(`{"clientParameters":{"address":"fd00::2","mtu":16000},"serverAddress":"fd00::1","serverRSDPort":58783}`))
	conn := &fakeConn{response: bytes.NewReader(respFrame)}
	params, err := Perform(context.Background(), conn, NewRequest(16000))
	if err != nil {
		t.Fatalf("Perform returned %v, want nil", err)
	}
	if params.ClientAddress != netip.MustParseAddr("fd00::2") {
		t.Fatalf("address = %v", params.ClientAddress)
	}
	if params.MTU != 16000 {
		t.Fatalf("mtu = %d, want 16000", params.MTU)
	}
	if params.ServerAddress != netip.MustParseAddr("fd00::1") {
		t.Fatalf("serverAddress = %v", params.ServerAddress)
	}
	if params.ServerRSDPort != 58783 {
		t.Fatalf("serverRSDPort = %d", params.ServerRSDPort)
	}
	sentReq, err := ReadFrame(bytes.NewReader(conn.written.Bytes()))
	if err != nil {
		t.Fatalf("could not parse what Perform wrote: %v", err)
	}
	if string(sentReq) != `{"type":"clientHandshakeRequest","mtu":16000}` {
		t.Fatalf("sent request = %s", sentReq)
	}
}

func TestPerformRejectsOutOfRangeMTU(t *testing.T) {
	respFrame, _ := EncodeFrame([]byte(`{"clientParameters":{"address":"fd00::2","mtu":70000},"serverAddress":"fd00::1"}`))
	conn := &fakeConn{response: bytes.NewReader(respFrame)}
	_, err := Perform(context.Background(), conn, NewRequest(16000))
	if !tunerr.Is(err, tunerr.ProtocolError) {
		t.Fatalf("error %v is not ProtocolError", err)
	}
}

func TestPerformRejectsUnparseableServerAddress(t *testing.T) {
	respFrame, _ := EncodeFrame([]byte(`{"clientParameters":{"address":"fd00::2","mtu":16000},"serverAddress":"not-an-address"}`))
	conn := &fakeConn{response: bytes.NewReader(respFrame)}
	_, err := Perform(context.Background(), conn, NewRequest(16000))
	if !tunerr.Is(err, tunerr.ProtocolError) {
		t.Fatalf("error %v is not ProtocolError", err)
	}
}

// blockingConn never returns from Read, forcing Perform's timeout path.
type blockingConn struct {
	written bytes.Buffer
	block   chan struct{}
}

func (b *blockingConn) Write(p []byte) (int, error) { return b.written.Write(p) }
func (b *blockingConn) Read(p []byte) (int, error) {
	<-b.block
	return 0, nil
}

func TestPerformTimesOutOnNoResponse(t *testing.T) {
	conn := &blockingConn{block: make(chan struct{})}
	defer close(conn.block)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Perform(ctx, conn, NewRequest(16000))
	if !tunerr.Is(err, tunerr.HandshakeTimeout) {
		t.Fatalf("error %v is not HandshakeTimeout", err)
	}
}
