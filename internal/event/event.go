package event

import (
	"strings"
	"time"
)

// Event names delivered on auction and wallet topics. The chain watcher and the
// settlement worker publish exactly these names; any other name is passed
// through to subscribers without special handling.
const (
	EventReady            = "ready"
	EventBidPending       = "bid_pending"
	EventBidConfirmed     = "bid_confirmed"
	EventBidFailed        = "bid_failed"
	EventAuctionExtended  = "auction_extended"
	EventAuctionSettled   = "auction_settled"
	EventAuctionCancelled = "auction_cancelled"
)

// Auction status values carried on settlement and cancellation events.
const (
	StatusEnded     = "ENDED"
	StatusCancelled = "CANCELLED"
)

// Envelope is what the broker hands to every sink: the topic it was published
// on, the event name, and the payload as the publisher provided it. The broker
// never inspects the payload.
type Envelope struct {
	Topic       string
	Name        string
	Payload     any
	PublishedAt time.Time
}

// AuctionTopic returns the canonical topic string for an auction.
func AuctionTopic(auctionID string) string {
	return "auction:" + auctionID
}

// WalletTopic returns the canonical topic string for a wallet address. The
// address is lower-cased so that differently-cased callers always land on the
// same topic.
func WalletTopic(address string) string {
	return "wallet:" + strings.ToLower(address)
}
