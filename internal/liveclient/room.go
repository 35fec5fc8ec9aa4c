package liveclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/rs/zerolog/log"
)

// State is the connection state of a single room.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateBackingOff State = "backing-off"
	StateClosed     State = "closed"
)

// maxReconnectAttempts is the retry ceiling; past it the room gives up and the
// caller is expected to build a fresh client.
const maxReconnectAttempts = 20

// room is one persistent stream connection to one topic.
type room struct {
	client *Client
	topic  string
	url    string

	mu    sync.RWMutex
	state State
}

func newRoom(c *Client, topic string) *room {
	return &room{
		client: c,
		topic:  topic,
		url:    c.opts.StreamURL(c.opts.BaseURL, topic),
		state:  StateConnecting,
	}
}

// State returns the room's current connection state.
func (r *room) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *room) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// run drives the connecting → open → backing-off → connecting loop until ctx is
// cancelled or the retry ceiling is hit. Backoff resets once a stream opens.
func (r *room) run(ctx context.Context) {
	defer r.setState(StateClosed)

	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		r.setState(StateConnecting)
		err := r.stream(ctx, b)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Debug().Err(err).Str("topic", r.topic).Msg("live stream interrupted")
		}
		if b.Attempt() >= maxReconnectAttempts {
			log.Error().
				Str("topic", r.topic).
				Float64("attempts", b.Attempt()).
				Msg("live stream reconnect ceiling reached, giving up")
			return
		}

		r.setState(StateBackingOff)
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return
		}
	}
}

func (r *room) stream(ctx context.Context, b *backoff.Backoff) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.client.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	r.setState(StateOpen)
	b.Reset()

	return r.readEvents(resp.Body)
}

// readEvents parses text/event-stream framing: "event:"/"data:" lines, a blank
// line terminating each frame, and ":" comment lines for keep-alives.
func (r *room) readEvents(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 16*1024), 1024*1024)

	var name string
	var data bytes.Buffer

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" || data.Len() > 0 {
				r.dispatch(name, data.Bytes())
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

// dispatch decodes one named event and invokes its handler. Malformed payloads
// are dropped, and a panicking handler is contained so the read loop survives.
func (r *room) dispatch(name string, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("topic", r.topic).
				Str("event", name).
				Msg("live event handler panicked")
		}
	}()

	handlers := r.client.handlers.Load()
	if handlers == nil {
		return
	}

	payload, err := event.DecodePayload(name, data)
	if err != nil {
		log.Debug().Err(err).Str("topic", r.topic).Str("event", name).Msg("dropping malformed event payload")
		return
	}

	switch p := payload.(type) {
	case event.ReadyPayload:
		if handlers.OnReady != nil {
			handlers.OnReady()
		}
	case event.BidPayload:
		if name == event.EventBidPending {
			if handlers.OnBidPending != nil {
				handlers.OnBidPending(p)
			}
		} else if handlers.OnBidConfirmed != nil {
			handlers.OnBidConfirmed(p)
		}
	case event.BidFailedPayload:
		if handlers.OnBidFailed != nil {
			handlers.OnBidFailed(p)
		}
	case event.AuctionExtendedPayload:
		if handlers.OnAuctionExtended != nil {
			handlers.OnAuctionExtended(p)
		}
	case event.AuctionClosedPayload:
		if name == event.EventAuctionSettled {
			p.Normalize(event.StatusEnded)
			if handlers.OnAuctionSettled != nil {
				handlers.OnAuctionSettled(p)
			}
		} else {
			p.Normalize(event.StatusCancelled)
			if handlers.OnAuctionCancelled != nil {
				handlers.OnAuctionCancelled(p)
			}
		}
	case event.UnknownPayload:
		if handlers.OnUnknown != nil {
			handlers.OnUnknown(p.Name, p.Raw)
		}
	}
}
