// Package runtime spawns and manages agents. Each running agent owns a
// bounded input queue, a multi-subscriber output broadcast, and a shared
// state cell; external code interacts through an AgentHandle while the
// agent loop works through AgentInternals.
//
// Information Hiding:
// - Channel wiring between handle and loop
// - Broadcast fan-out and lag accounting
// - Registry bookkeeping
package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/HourSense/shadow-agent-framework/core"
)

// InputChannelSize is the capacity of the agent input queue. Senders
// block when the queue is full.
const InputChannelSize = 32

// OutputChannelSize is the per-subscriber buffer of the output broadcast.
const OutputChannelSize = 256

// Broadcaster fans output chunks out to any number of subscribers. Each
// subscriber has its own bounded buffer; a subscriber that falls behind
// loses chunks and is flagged so its next receive reports the lag. Late
// subscribers do not see chunks emitted before they subscribed. Sending
// with no subscribers is a silent no-op.
type Broadcaster struct {
	mu       sync.Mutex
	capacity int
	nextID   int
	subs     map[int]*Subscriber
}

// NewBroadcaster creates a broadcaster with the given per-subscriber
// buffer capacity (OutputChannelSize when zero or negative).
func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = OutputChannelSize
	}
	return &Broadcaster{
		capacity: capacity,
		subs:     make(map[int]*Subscriber),
	}
}

// Subscriber receives output chunks from a broadcaster.
type Subscriber struct {
	broadcaster *Broadcaster
	id          int
	ch          chan core.OutputChunk
	lagged      atomic.Bool
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		broadcaster: b,
		id:          b.nextID,
		ch:          make(chan core.OutputChunk, b.capacity),
	}
	b.nextID++
	b.subs[sub.id] = sub
	return sub
}

// Send delivers a chunk to every subscriber without blocking. Returns
// the number of subscribers that received it; subscribers whose buffer
// is full are flagged as lagged and skipped.
func (b *Broadcaster) Send(chunk core.OutputChunk) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, sub := range b.subs {
		select {
		case sub.ch <- chunk:
			delivered++
		default:
			sub.lagged.Store(true)
		}
	}
	return delivered
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unregisters all subscribers and closes their channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

func (b *Broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Recv returns the next chunk. After the subscriber has overflowed, the
// first call reports core.ErrSubscriberLagged once; subsequent calls
// continue with the newer chunks. A closed broadcast returns
// core.ErrChannelClosed.
func (s *Subscriber) Recv() (core.OutputChunk, error) {
	if s.lagged.Swap(false) {
		return core.OutputChunk{}, core.ErrSubscriberLagged
	}
	chunk, ok := <-s.ch
	if !ok {
		return core.OutputChunk{}, core.ErrChannelClosed
	}
	return chunk, nil
}

// TryRecv returns the next chunk without blocking.
func (s *Subscriber) TryRecv() (core.OutputChunk, bool) {
	if s.lagged.Swap(false) {
		return core.OutputChunk{}, false
	}
	select {
	case chunk, ok := <-s.ch:
		if !ok {
			return core.OutputChunk{}, false
		}
		return chunk, true
	default:
		return core.OutputChunk{}, false
	}
}

// Chan exposes the subscriber's channel for use in select statements.
// Lag detection is bypassed when reading the channel directly.
func (s *Subscriber) Chan() <-chan core.OutputChunk {
	return s.ch
}

// Unsubscribe removes this subscriber from the broadcast.
func (s *Subscriber) Unsubscribe() {
	s.broadcaster.unsubscribe(s.id)
}

// Resubscribe replaces a lagged subscription with a fresh one.
func (s *Subscriber) Resubscribe() *Subscriber {
	s.Unsubscribe()
	return s.broadcaster.Subscribe()
}

// stateCell wraps the shared agent state behind a readers-writer lock.
// Only the loop writes; handles read.
type stateCell struct {
	mu    sync.RWMutex
	state core.AgentState
}

func newStateCell() *stateCell {
	return &stateCell{state: core.Idle()}
}

func (c *stateCell) get() core.AgentState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *stateCell) set(state core.AgentState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// agentChannels bundles the primitives created for one agent.
type agentChannels struct {
	input  chan core.InputMessage
	output *Broadcaster
	state  *stateCell
}

func newAgentChannels() *agentChannels {
	return &agentChannels{
		input:  make(chan core.InputMessage, InputChannelSize),
		output: NewBroadcaster(OutputChannelSize),
		state:  newStateCell(),
	}
}
