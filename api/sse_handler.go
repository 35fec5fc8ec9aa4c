package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/nippysky/panthart-live/internal/feed"
	"github.com/rs/zerolog/log"
)

var (
	auctionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	walletPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// eventFeaturedBid is the SSE event name on the featured stream; the payload's
// own kind field distinguishes placed from increased.
const eventFeaturedBid = "featured_bid"

// @Summary		Stream auction events via Server-Sent Events
// @Description	Establishes an SSE connection to receive real-time bid lifecycle updates for an auction
// @Tags			auctions
// @Produce		text/event-stream
// @Param			auctionID	path		string	true	"Auction ID"
// @Success		200			{string}	string	"Event stream. Frames have the format: 'event: {eventType}\ndata: {jsonData}'"
// @Failure		400			{object}	object	"Invalid auction ID format"
// @Router			/v1/auctions/{auctionID}/stream [get]
func (server *Server) streamAuctionEvents(c *gin.Context) {
	auctionID := c.Param("auctionID")
	if !auctionIDPattern.MatchString(auctionID) {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid auction ID format")))
		return
	}

	server.streamTopic(c, event.AuctionTopic(auctionID))
}

// @Summary		Stream wallet events via Server-Sent Events
// @Description	Establishes an SSE connection to receive real-time bid lifecycle updates for a wallet. The address is case-folded.
// @Tags			wallets
// @Produce		text/event-stream
// @Param			address	path		string	true	"Wallet address (0x-prefixed)"
// @Success		200		{string}	string	"Event stream"
// @Failure		400		{object}	object	"Invalid wallet address format"
// @Router			/v1/wallets/{address}/stream [get]
func (server *Server) streamWalletEvents(c *gin.Context) {
	address := c.Param("address")
	if !walletPattern.MatchString(address) {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid wallet address format")))
		return
	}

	server.streamTopic(c, event.WalletTopic(address))
}

// streamTopic attaches one sink to topic and pumps its envelopes to the client
// until the client goes away or the broker drops the sink. The sink's queued
// ready handshake is always the first frame.
func (server *Server) streamTopic(c *gin.Context, topic string) {
	setStreamHeaders(c)

	sink := server.broker.Subscribe(topic)
	defer server.broker.Unsubscribe(sink)

	keepAlive := time.NewTicker(server.config.SSEKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case env, ok := <-sink.Events():
			if !ok {
				// The broker tore this sink down as a slow subscriber.
				return
			}
			if !writeFrame(c, env.Name, env.Payload) {
				return
			}
		case <-keepAlive.C:
			fmt.Fprintf(c.Writer, ": ping %d\n\n", time.Now().UnixMilli())
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// @Summary		Stream featured bid activity via Server-Sent Events
// @Description	Establishes an SSE connection to the global featured feed. Clients should first hydrate from the activity snapshot endpoint.
// @Tags			featured
// @Produce		text/event-stream
// @Success		200	{string}	string	"Event stream"
// @Router			/v1/featured/stream [get]
func (server *Server) streamFeaturedActivity(c *gin.Context) {
	setStreamHeaders(c)

	events := make(chan feed.Event, 16)
	unsubscribe := server.featuredFeed.AddListener(func(ev feed.Event) {
		select {
		case events <- ev:
		default:
			// A stalled viewer just misses the push; it re-hydrates from the
			// snapshot endpoint on reconnect.
		}
	})
	defer unsubscribe()

	if !writeFrame(c, event.EventReady, event.ReadyPayload{OK: true}) {
		return
	}

	keepAlive := time.NewTicker(server.config.SSEKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case ev := <-events:
			if !writeFrame(c, eventFeaturedBid, ev) {
				return
			}
		case <-keepAlive.C:
			fmt.Fprintf(c.Writer, ": ping %d\n\n", time.Now().UnixMilli())
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// @Summary		List recent featured bid activity
// @Description	Returns up to limit featured feed entries, newest first, for hydration on first paint.
// @Tags			featured
// @Produce		json
// @Param			limit	query		int	false	"Maximum entries to return"	default(50)
// @Success		200		{array}		feed.Event
// @Failure		400		{object}	object	"Invalid limit"
// @Router			/v1/featured/activity [get]
func (server *Server) listFeaturedActivity(c *gin.Context) {
	type listFeaturedActivityRequest struct {
		Limit int `form:"limit,default=50"`
	}

	var req listFeaturedActivityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, server.featuredFeed.Snapshot(req.Limit))
}

func setStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// writeFrame marshals one SSE frame. Marshal failures skip the frame but keep
// the stream alive; delivery of later events must not depend on one bad
// payload.
func writeFrame(c *gin.Context, name string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("failed to marshal event payload")
		return true
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}
