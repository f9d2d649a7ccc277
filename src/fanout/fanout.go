// Package fanout implements the Packet Subscription Fanout: a list of
// push-style subscriber callbacks plus pull-style PacketStreams, each
// backed by a private unbounded FIFO and a single waker, structured
// the way the teacher keeps its own address/subnet subscriber maps
// guarded by a single mutex under the owning actor.
package fanout

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/appium/appium-ios-tuntap/src/demux"
)

// Subscriber receives every PacketRecord published after it
// subscribes, synchronously. A panicking subscriber is recovered so it
// cannot crash the fanout or starve other subscribers; a slow one
// delays Publish, since every subscriber runs on the publishing
// goroutine.
type Subscriber func(rec demux.PacketRecord)

// SubscriptionID identifies a push subscription for Unsubscribe.
type SubscriptionID uint64

// Fanout distributes published PacketRecords to push subscribers and
// pull streams. Only TCP/UDP datagrams reach Publish; the ingress loop
// still forwards every other next-header to the interface without
// involving the fanout.
type Fanout struct {
	mu           sync.Mutex
	nextSubID    SubscriptionID
	subscribers  map[SubscriptionID]Subscriber
	nextStreamID uint64
	streams      map[uint64]*PacketStream
	history      []demux.PacketRecord
}

// New returns an empty Fanout.
func New() *Fanout {
	return &Fanout{
		subscribers: make(map[SubscriptionID]Subscriber),
		streams:     make(map[uint64]*PacketStream),
	}
}

// Subscribe registers a push subscriber and returns an ID for
// Unsubscribe.
func (f *Fanout) Subscribe(sub Subscriber) SubscriptionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSubID++
	id := f.nextSubID
	f.subscribers[id] = sub
	return id
}

// Unsubscribe removes a push subscriber. Removing an unknown ID is a
// no-op.
func (f *Fanout) Unsubscribe(id SubscriptionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscribers, id)
}

// Stream opens a pull-style PacketStream. The returned stream's Next
// unblocks once ctx is canceled, even mid-wait.
func (f *Fanout) Stream(ctx context.Context) *PacketStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextStreamID++
	id := f.nextStreamID
	s := newPacketStream(ctx, func() {
		f.mu.Lock()
		delete(f.streams, id)
		f.mu.Unlock()
	})
	f.streams[id] = s
	return s
}

// Publish delivers rec to every current push subscriber (suppressing
// any subscriber panic so it cannot starve the rest) and every pull
// stream's FIFO, then records it for Snapshot. Callers only publish
// records for which demux.ParseL4 reported ok.
func (f *Fanout) Publish(rec demux.PacketRecord) {
	f.mu.Lock()
	subs := make([]Subscriber, 0, len(f.subscribers))
	for _, s := range f.subscribers {
		subs = append(subs, s)
	}
	streams := make([]*PacketStream, 0, len(f.streams))
	for _, s := range f.streams {
		streams = append(streams, s)
	}
	f.history = append(f.history, rec)
	if len(f.history) > maxHistory {
		f.history = f.history[len(f.history)-maxHistory:]
	}
	f.mu.Unlock()

	for _, sub := range subs {
		callSubscriber(sub, rec)
	}
	for _, s := range streams {
		s.push(rec)
	}
}

func callSubscriber(sub Subscriber, rec demux.PacketRecord) {
	defer func() { _ = recover() }()
	sub(rec)
}

// Reset clears every pending pull-stream record and drops every push
// subscriber and stream, per stop()'s teardown contract. A stream's
// Next observes this the same way it observes context cancellation.
func (f *Fanout) Reset() {
	f.mu.Lock()
	streams := make([]*PacketStream, 0, len(f.streams))
	for _, s := range f.streams {
		streams = append(streams, s)
	}
	f.subscribers = make(map[SubscriptionID]Subscriber)
	f.streams = make(map[uint64]*PacketStream)
	f.history = nil
	f.mu.Unlock()

	for _, s := range streams {
		s.mu.Lock()
		s.fifo = nil
		s.mu.Unlock()
		s.Close()
	}
}

const maxHistory = 64

// Snapshot renders the most recently published packets as a table, the
// way the teacher's admin socket renders peer/session tables via
// tablewriter.
func (f *Fanout) Snapshot() string {
	f.mu.Lock()
	rows := make([]demux.PacketRecord, len(f.history))
	copy(rows, f.history)
	f.mu.Unlock()

	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Source", "Destination", "Protocol", "SrcPort", "DstPort", "PayloadLen"})
	for _, rec := range rows {
		table.Append([]string{
			rec.Source, rec.Destination, rec.Protocol,
			strconv.Itoa(int(rec.SrcPort)), strconv.Itoa(int(rec.DstPort)), strconv.Itoa(len(rec.Payload)),
		})
	}
	table.Render()
	return sb.String()
}
