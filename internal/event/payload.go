package event

import (
	"encoding/json"
)

// ReadyPayload is the synthetic handshake sent as the first frame of every
// subscription.
type ReadyPayload struct {
	OK bool `json:"ok"`
}

// BidPayload is carried by bid_pending and bid_confirmed events. Amount is a
// base-unit decimal string, At is epoch milliseconds. BlockNumber is only set
// once the transaction is confirmed.
type BidPayload struct {
	TxHash      string `json:"txHash"`
	From        string `json:"from"`
	AuctionID   string `json:"auctionId"`
	Amount      string `json:"amount"`
	CurrencyID  string `json:"currencyId"`
	At          int64  `json:"at"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// BidFailedPayload is carried by bid_failed events.
type BidFailedPayload struct {
	TxHash    string `json:"txHash"`
	From      string `json:"from"`
	AuctionID string `json:"auctionId"`
	Reason    string `json:"reason,omitempty"`
	At        int64  `json:"at"`
}

// AuctionExtendedPayload is carried by auction_extended events when the
// anti-snipe rule pushes the end time back.
type AuctionExtendedPayload struct {
	AuctionID     string `json:"auctionId"`
	NewEndTimeSec int64  `json:"newEndTimeSec"`
}

// AuctionClosedPayload is carried by auction_settled and auction_cancelled
// events. Producers are inconsistent about Price vs Amount for settlements, so
// consumers should call Normalize before reading either field.
type AuctionClosedPayload struct {
	AuctionID   string `json:"auctionId"`
	Status      string `json:"status,omitempty"`
	Winner      string `json:"winner,omitempty"`
	Price       string `json:"price,omitempty"`
	Amount      string `json:"amount,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	TxHash      string `json:"txHash,omitempty"`
	At          int64  `json:"at,omitempty"`
}

// Normalize mirrors Price and Amount into each other when only one is set and
// defaults Status to defaultStatus when the producer omitted it. After
// Normalize, consumers can rely on both fields being populated for settlements.
func (p *AuctionClosedPayload) Normalize(defaultStatus string) {
	if p.Status == "" {
		p.Status = defaultStatus
	}
	if p.Price == "" && p.Amount != "" {
		p.Price = p.Amount
	}
	if p.Amount == "" && p.Price != "" {
		p.Amount = p.Price
	}
}

// UnknownPayload preserves an event this package does not recognize so it can
// still be delivered to subscribers.
type UnknownPayload struct {
	Name string
	Raw  json.RawMessage
}

// DecodePayload parses the JSON data of a named event into its typed payload.
// Unrecognized names decode into UnknownPayload without error. Malformed JSON
// for a recognized name returns an error; callers are expected to drop the
// event rather than propagate it.
func DecodePayload(name string, data []byte) (any, error) {
	switch name {
	case EventReady:
		var p ReadyPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventBidPending, EventBidConfirmed:
		var p BidPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventBidFailed:
		var p BidFailedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventAuctionExtended:
		var p AuctionExtendedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventAuctionSettled, EventAuctionCancelled:
		var p AuctionClosedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return UnknownPayload{Name: name, Raw: raw}, nil
	}
}
