package fanout

import (
	"context"
	"sync"

	"github.com/appium/appium-ios-tuntap/src/demux"
)

// PacketStream is a pull-style subscription: a private unbounded FIFO
// fed by Publish, with a single waker channel Next selects on so it
// never busy-polls.
type PacketStream struct {
	onClose func()

	mu     sync.Mutex
	fifo   []demux.PacketRecord
	waker  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func newPacketStream(ctx context.Context, onClose func()) *PacketStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &PacketStream{
		onClose: onClose,
		waker:   make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s
}

// push appends rec to the FIFO and wakes a blocked Next, if any.
func (s *PacketStream) push(rec demux.PacketRecord) {
	s.mu.Lock()
	s.fifo = append(s.fifo, rec)
	s.mu.Unlock()
	select {
	case s.waker <- struct{}{}:
	default:
	}
}

// Next blocks until a record is available or the stream's context is
// canceled, in which case ok is false.
func (s *PacketStream) Next() (demux.PacketRecord, bool) {
	for {
		s.mu.Lock()
		if len(s.fifo) > 0 {
			rec := s.fifo[0]
			s.fifo = s.fifo[1:]
			s.mu.Unlock()
			return rec, true
		}
		s.mu.Unlock()

		select {
		case <-s.waker:
		case <-s.ctx.Done():
			return demux.PacketRecord{}, false
		}
	}
}

// Close cancels the stream and detaches it from its Fanout. Idempotent.
func (s *PacketStream) Close() {
	s.cancel()
	if s.onClose != nil {
		s.onClose()
	}
}
