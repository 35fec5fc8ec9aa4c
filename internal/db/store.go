package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRecordNotFound = pgx.ErrNoRows

// Auction is the read model the live layer needs: enough to settle an auction
// and enrich its events. Marketplace writes happen elsewhere.
type Auction struct {
	ID            string
	Collection    string
	Status        string // ACTIVE | ENDED | CANCELLED
	EndTime       time.Time
	HighestBidder *string
	HighestBidWei *string
	CurrencyID    string
	SettleTxHash  *string
	SettleBlock   *int64
}

// UserProfile is the display profile attached to featured feed entries.
type UserProfile struct {
	Wallet   string
	Username *string
	Avatar   *string
}

// CollectionMeta is the display metadata attached to featured feed entries.
type CollectionMeta struct {
	Address string
	Name    *string
	Image   *string
}

// Store provides the read-side queries used by the watcher and the settlement
// worker.
type Store interface {
	Ping(ctx context.Context) error
	GetAuction(ctx context.Context, id string) (Auction, error)
	GetUserProfile(ctx context.Context, wallet string) (UserProfile, error)
	GetCollectionMeta(ctx context.Context, address string) (CollectionMeta, error)
}

type SQLStore struct {
	connPool *pgxpool.Pool
}

// NewStore creates a new Store.
func NewStore(connPool *pgxpool.Pool) Store {
	return &SQLStore{
		connPool: connPool,
	}
}

// Ping checks if the database connection is alive.
func (store *SQLStore) Ping(ctx context.Context) error {
	return store.connPool.Ping(ctx)
}

const getAuctionQuery = `
SELECT id, collection_address, status, end_time, highest_bidder, highest_bid_wei, currency_id, settle_tx_hash, settle_block
FROM auctions
WHERE id = $1
`

func (store *SQLStore) GetAuction(ctx context.Context, id string) (Auction, error) {
	var a Auction
	err := store.connPool.QueryRow(ctx, getAuctionQuery, id).Scan(
		&a.ID,
		&a.Collection,
		&a.Status,
		&a.EndTime,
		&a.HighestBidder,
		&a.HighestBidWei,
		&a.CurrencyID,
		&a.SettleTxHash,
		&a.SettleBlock,
	)
	return a, err
}

const getUserProfileQuery = `
SELECT lower(wallet_address), username, avatar_url
FROM users
WHERE lower(wallet_address) = lower($1)
`

func (store *SQLStore) GetUserProfile(ctx context.Context, wallet string) (UserProfile, error) {
	var p UserProfile
	err := store.connPool.QueryRow(ctx, getUserProfileQuery, wallet).Scan(
		&p.Wallet,
		&p.Username,
		&p.Avatar,
	)
	return p, err
}

const getCollectionMetaQuery = `
SELECT lower(contract_address), name, logo_url
FROM collections
WHERE lower(contract_address) = lower($1)
`

func (store *SQLStore) GetCollectionMeta(ctx context.Context, address string) (CollectionMeta, error) {
	var m CollectionMeta
	err := store.connPool.QueryRow(ctx, getCollectionMetaQuery, address).Scan(
		&m.Address,
		&m.Name,
		&m.Image,
	)
	return m, err
}
