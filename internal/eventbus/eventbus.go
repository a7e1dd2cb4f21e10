// Package eventbus implements the multi-producer/single-consumer channel
// described in spec.md §4.G: the ingestion service, symbol-load workers and
// the input-polling goroutine all post events; the main loop is the sole
// consumer. Sends are non-blocking best-effort; Next is a blocking receive.
package eventbus

import (
	"context"

	"github.com/rogercoll/eprofiler-tui/internal/flamegraph"
)

// Event is the sealed event enum the state controller applies transitions
// from. Only types in this package implement it.
type Event interface {
	isEvent()
}

// Tick is the render-cadence placeholder posted by the input goroutine.
type Tick struct{}

// Key is one terminal key event.
type Key struct {
	Rune rune
	Name string // non-empty for named keys (e.g. "enter", "esc", "up")
}

// Resize carries the new terminal dimensions.
type Resize struct {
	Width, Height int
}

// ProfileUpdate carries one export's worth of resolved samples, ready to be
// merged into the flame graph and recorded into the flamescope.
type ProfileUpdate struct {
	Flamegraph *flamegraph.Node
	Samples    int64
	Timestamps map[string][]uint64
}

// MappingsDiscovered names executables seen in a profile for the first
// time, with no symbols loaded yet.
type MappingsDiscovered struct {
	Basenames []string
}

// SymbolsLoaded reports the outcome of a LoadSymbols action.
type SymbolsLoaded struct {
	TargetName string
	NumRanges  uint32
	FileID     string
	Err        error
}

// SymbolsRemoved reports the outcome of a RemoveSymbols action.
type SymbolsRemoved struct {
	Name string
	Err  error
}

func (Tick) isEvent()               {}
func (Key) isEvent()                {}
func (Resize) isEvent()             {}
func (ProfileUpdate) isEvent()      {}
func (MappingsDiscovered) isEvent() {}
func (SymbolsLoaded) isEvent()      {}
func (SymbolsRemoved) isEvent()     {}

// Bus is a buffered, many-to-one event channel.
type Bus struct {
	ch chan Event
}

// New returns a Bus with the given channel capacity.
func New(capacity int) *Bus {
	return &Bus{ch: make(chan Event, capacity)}
}

// Send posts ev without blocking; if the channel is full the event is
// silently dropped, per spec.md §4.G ("dropped sends are tolerated for
// transient events").
func (b *Bus) Send(ev Event) {
	select {
	case b.ch <- ev:
	default:
	}
}

// Next blocks until an event arrives or ctx is done.
func (b *Bus) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-b.ch:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
