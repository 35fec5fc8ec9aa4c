package watcher

// IndexedEvent is one decoded, verified marketplace event as served by the
// on-chain indexer's feed. Seq is the indexer's monotonic cursor; the watcher
// only ever asks for events after the last sequence it relayed.
type IndexedEvent struct {
	Seq           int64  `json:"seq"`
	Kind          string `json:"kind"`
	TxHash        string `json:"txHash"`
	From          string `json:"from"`
	AuctionID     string `json:"auctionId"`
	AmountWei     string `json:"amountWei"`
	CurrencyID    string `json:"currencyId"`
	BlockNumber   uint64 `json:"blockNumber"`
	At            int64  `json:"at"`
	Reason        string `json:"reason,omitempty"`
	NewEndTimeSec int64  `json:"newEndTimeSec,omitempty"`
	Winner        string `json:"winner,omitempty"`
	PriceWei      string `json:"priceWei,omitempty"`
	Status        string `json:"status,omitempty"`
	CycleID       string `json:"cycleId,omitempty"`
	Collection    string `json:"collection,omitempty"`
}

// Indexer feed kinds for featured-slot bid activity. The remaining kinds reuse
// the bid-lifecycle event names verbatim.
const (
	KindFeaturedBidPlaced    = "featured_bid_placed"
	KindFeaturedBidIncreased = "featured_bid_increased"
)
