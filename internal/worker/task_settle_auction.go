package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nippysky/panthart-live/internal/db"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/rs/zerolog/log"
)

type PayloadSettleAuction struct {
	AuctionID string `json:"auction_id"`
}

// SettleAuctionTaskID returns the task id used to deduplicate and reschedule
// settlement for one auction.
func SettleAuctionTaskID(auctionID string) string {
	return fmt.Sprintf("auction:settle:%s", auctionID)
}

// DistributeTaskSettleAuction schedules the settlement broadcast for an auction.
// Scheduling again with the same auction id while a task is pending returns
// asynq.ErrTaskIDConflict; callers rescheduling after an extension delete the
// pending task first via the inspector.
func (distributor *RedisTaskDistributor) DistributeTaskSettleAuction(
	ctx context.Context,
	payload *PayloadSettleAuction,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := SettleAuctionTaskID(payload.AuctionID)
	task := asynq.NewTask(TaskSettleAuction, jsonPayload, append(opts, asynq.TaskID(taskID))...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("task_id", taskID).
		Str("auction_id", payload.AuctionID).
		Str("queue", info.Queue).
		Int("max_retry", info.MaxRetry).
		Time("process_at", info.NextProcessAt).
		Msg("auction settle task scheduled")

	return nil
}

// ProcessTaskSettleAuction reads the final auction state and broadcasts the
// settlement (or cancellation) to the auction topic and to the winner's wallet
// topic.
func (processor *RedisTaskProcessor) ProcessTaskSettleAuction(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadSettleAuction
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	log.Info().
		Str("auction_id", payload.AuctionID).
		Msg("processing auction settle task")

	auction, err := processor.store.GetAuction(ctx, payload.AuctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			log.Info().
				Str("auction_id", payload.AuctionID).
				Msg("auction not found, skipping task")
			return nil
		}
		return fmt.Errorf("failed to get auction: %w", err)
	}

	now := time.Now().UnixMilli()
	closed := event.AuctionClosedPayload{
		AuctionID: auction.ID,
		At:        now,
	}
	if auction.SettleTxHash != nil {
		closed.TxHash = *auction.SettleTxHash
	}
	if auction.SettleBlock != nil {
		closed.BlockNumber = uint64(*auction.SettleBlock)
	}

	name := event.EventAuctionSettled
	switch auction.Status {
	case event.StatusCancelled:
		name = event.EventAuctionCancelled
		closed.Status = event.StatusCancelled
	default:
		closed.Status = event.StatusEnded
		if auction.HighestBidder != nil {
			closed.Winner = *auction.HighestBidder
		}
		if auction.HighestBidWei != nil {
			closed.Price = *auction.HighestBidWei
			closed.Amount = *auction.HighestBidWei
		}
	}

	processor.broker.Publish(event.AuctionTopic(auction.ID), name, closed)
	if closed.Winner != "" {
		processor.broker.Publish(event.WalletTopic(closed.Winner), name, closed)
	}

	log.Info().
		Str("auction_id", auction.ID).
		Str("event", name).
		Str("winner", closed.Winner).
		Msg("auction settlement broadcasted")

	return nil
}
