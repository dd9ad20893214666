package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/redis/go-redis/v9"
)

const consumerGroup = "hscode_realtime_consumers"

// GroupChangeHandler applies a group mutation made outside this process.
type GroupChangeHandler interface {
	HandleExternalChange(change service.GroupChange) error
}

// GroupEventsWorker consumes the group events stream written by the admin
// tooling and replays each change to connected clients.
type GroupEventsWorker struct {
	rdb      *redis.Client
	handler  GroupChangeHandler
	stream   string
	consumer string
}

func NewGroupEventsWorker(rdb *redis.Client, handler GroupChangeHandler, stream, consumer string) *GroupEventsWorker {
	return &GroupEventsWorker{
		rdb:      rdb,
		handler:  handler,
		stream:   stream,
		consumer: consumer,
	}
}

// Start blocks until ctx is cancelled.
func (w *GroupEventsWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, w.stream, consumerGroup, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		logging.Error().Err(err).Str("stream", w.stream).Msg("create consumer group failed")
	}

	logging.Info().Str("stream", w.stream).Str("consumer", w.consumer).Msg("group events worker started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("group events worker stopped")
			return
		default:
		}

		entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: w.consumer,
			Streams:  []string{w.stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logging.Warn().Err(err).Str("stream", w.stream).Msg("stream read failed")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range entries {
			for _, msg := range stream.Messages {
				w.processMessage(msg.ID, msg.Values)
				if err := w.rdb.XAck(ctx, w.stream, consumerGroup, msg.ID).Err(); err != nil {
					logging.Warn().Err(err).Str("id", msg.ID).Msg("stream ack failed")
				}
			}
		}
	}
}

// processMessage never fails the batch: malformed or stale entries are
// logged and acknowledged.
func (w *GroupEventsWorker) processMessage(id string, values map[string]interface{}) {
	change, err := parseGroupChange(values)
	if err != nil {
		logging.Warn().Err(err).Str("id", id).Msg("invalid group event")
		return
	}
	if err := w.handler.HandleExternalChange(change); err != nil {
		logging.Warn().Err(err).Str("id", id).Str("kind", change.Kind).Uint("group_id", change.GroupID).Msg("group event not applied")
		return
	}
	logging.Debug().Str("id", id).Str("kind", change.Kind).Uint("group_id", change.GroupID).Msg("group event applied")
}

func parseGroupChange(values map[string]interface{}) (service.GroupChange, error) {
	kind, ok := values["kind"].(string)
	if !ok || kind == "" {
		return service.GroupChange{}, errors.New("missing kind")
	}
	raw, ok := values["group_id"].(string)
	if !ok {
		return service.GroupChange{}, errors.New("missing group_id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return service.GroupChange{}, fmt.Errorf("invalid group_id %q", raw)
	}
	return service.GroupChange{Kind: kind, GroupID: uint(id)}, nil
}
