// Package feed delivers raw telemetry lines from instrument transports to
// any number of subscribers. A single Source (serial port, UDP socket, MQTT
// subscription, or canned data) feeds a Mux, which fans each line out to
// subscriber channels. The feed layer knows nothing about device formats;
// parsing happens downstream.
package feed

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Source delivers raw, newline-stripped lines from some transport until the
// context is cancelled. Run blocks; it returns the context's error on
// cancellation or the transport's error on failure.
type Source interface {
	Run(ctx context.Context, lines chan<- string) error
	Close() error
}

// Mux fans lines from a single Source out to multiple subscribers, so the
// record store, the raw-line logger and any live consumers can share one
// port without coordinating.
type Mux struct {
	src          Source
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// NewMux creates a Mux over the given source.
func NewMux(src Source) *Mux {
	return &Mux{
		src:         src,
		subscribers: make(map[string]chan string),
	}
}

// subscriberBuffer absorbs short consumer stalls; a subscriber further
// behind than this starts losing lines rather than stalling the feed.
const subscriberBuffer = 64

// Subscribe creates a new channel receiving every line from the source. The
// returned ID identifies the channel for Unsubscribe.
func (m *Mux) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Mux) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Monitor runs the source and distributes its lines to all subscribers until
// the context is cancelled or the source fails. A slow subscriber does not
// stall the feed: lines it cannot accept immediately are dropped for that
// subscriber only.
func (m *Mux) Monitor(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		errc <- m.src.Run(ctx, lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errc:
			return err

		case line := <-lines:
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
					// subscriber is busy; skip rather than block the feed
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

// Close closes all subscriber channels and the underlying source.
func (m *Mux) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.src.Close()
}

// ReaderSource adapts any line-oriented byte stream (a serial port, a file of
// fixtures) into a Source.
type ReaderSource struct {
	r io.ReadCloser
}

// NewReaderSource wraps a ReadCloser as a line source.
func NewReaderSource(r io.ReadCloser) *ReaderSource {
	return &ReaderSource{r: r}
}

// Run scans lines from the reader and forwards them until EOF, a read error,
// or context cancellation. The blocking Scan runs in its own goroutine so
// cancellation is never stuck behind a quiet transport.
func (s *ReaderSource) Run(ctx context.Context, lines chan<- string) error {
	scan := bufio.NewScanner(s.r)

	scanned := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(scanned)
		for scan.Scan() {
			select {
			case scanned <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErr <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErr:
			return err

		case line, ok := <-scanned:
			if !ok {
				// the scan error, if any, was posted before scanned closed
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close closes the underlying reader.
func (s *ReaderSource) Close() error {
	return s.r.Close()
}
