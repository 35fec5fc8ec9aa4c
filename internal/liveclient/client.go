// Package liveclient is the Go subscriber for the Panthart live event streams.
// A Client owns up to two rooms (one auction stream and one wallet stream),
// decodes named events into the typed bid-lifecycle protocol, and invokes the
// caller's handlers. Handlers live behind a swappable pointer so callers can
// replace them at any time without tearing the connections down; changing the
// auction id or wallet address means constructing a new Client.
package liveclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nippysky/panthart-live/internal/event"
	"github.com/nippysky/panthart-live/internal/feed"
	"resty.dev/v3"
)

// Handlers is the caller-supplied dispatch table. Nil entries mean the event is
// ignored. Settlement and cancellation payloads are normalized before dispatch:
// Price and Amount are mirrored and Status is defaulted.
type Handlers struct {
	OnReady            func()
	OnBidPending       func(event.BidPayload)
	OnBidConfirmed     func(event.BidPayload)
	OnBidFailed        func(event.BidFailedPayload)
	OnAuctionExtended  func(event.AuctionExtendedPayload)
	OnAuctionSettled   func(event.AuctionClosedPayload)
	OnAuctionCancelled func(event.AuctionClosedPayload)
	OnUnknown          func(name string, raw json.RawMessage)
}

// Options identify what the client connects to. AuctionID and Wallet are each
// optional; a room is only opened for the identifiers that are set. StreamURL
// optionally overrides how a topic is turned into a stream URL.
type Options struct {
	BaseURL    string
	AuctionID  string
	Wallet     string
	StreamURL  func(baseURL, topic string) string
	HTTPClient *http.Client
}

// Client maintains the live connections for one (auction, wallet) identity.
type Client struct {
	opts     Options
	handlers atomic.Pointer[Handlers]
	rooms    []*room
	rest     *resty.Client

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds a client for the identifiers in opts. Connections are not opened
// until Connect is called.
func New(opts Options, handlers *Handlers) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.StreamURL == nil {
		opts.StreamURL = defaultStreamURL
	}

	c := &Client{
		opts: opts,
		rest: resty.New().SetBaseURL(opts.BaseURL),
	}
	c.handlers.Store(handlers)

	if opts.AuctionID != "" {
		c.rooms = append(c.rooms, newRoom(c, event.AuctionTopic(opts.AuctionID)))
	}
	if opts.Wallet != "" {
		c.rooms = append(c.rooms, newRoom(c, event.WalletTopic(opts.Wallet)))
	}
	return c
}

// defaultStreamURL maps the canonical topic strings onto the server's stream
// endpoints.
func defaultStreamURL(baseURL, topic string) string {
	switch {
	case strings.HasPrefix(topic, "auction:"):
		return baseURL + "/v1/auctions/" + strings.TrimPrefix(topic, "auction:") + "/stream"
	case strings.HasPrefix(topic, "wallet:"):
		return baseURL + "/v1/wallets/" + strings.TrimPrefix(topic, "wallet:") + "/stream"
	default:
		return baseURL + "/v1/streams/" + topic
	}
}

// SetHandlers swaps the dispatch table. Connections are untouched; the next
// received event is dispatched through the new table.
func (c *Client) SetHandlers(handlers *Handlers) {
	c.handlers.Store(handlers)
}

// Connect opens every configured room. The rooms reconnect on their own until
// ctx is cancelled, Close is called, or the retry ceiling is reached.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("client already connected")
	}
	if len(c.rooms) == 0 {
		return fmt.Errorf("no auction id or wallet address to subscribe to")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true

	for _, r := range c.rooms {
		c.wg.Add(1)
		go func(r *room) {
			defer c.wg.Done()
			r.run(runCtx)
		}(r)
	}
	return nil
}

// Close tears every room down and waits for their loops to exit. It is safe to
// call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	_ = c.rest.Close()
}

// RoomStates reports the connection state per topic, for observability and
// tests.
func (c *Client) RoomStates() map[string]State {
	states := make(map[string]State, len(c.rooms))
	for _, r := range c.rooms {
		states[r.topic] = r.State()
	}
	return states
}

// FeaturedActivity fetches the featured feed snapshot used to hydrate UI state
// that predates the live connection.
func (c *Client) FeaturedActivity(ctx context.Context, limit int) ([]feed.Event, error) {
	var events []feed.Event
	res, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&events).
		Get("/v1/featured/activity")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("snapshot request failed: %s", res.Status())
	}
	return events, nil
}
