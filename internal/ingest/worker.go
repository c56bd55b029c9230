// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/newsshelf/recservice/internal/metrics"
	"github.com/newsshelf/recservice/internal/models"
)

// Store is the slice of storage the worker writes through.
// Implemented by database.DB.
type Store interface {
	InsertActivity(ctx context.Context, a *models.Activity) error
	IncrementViewCount(ctx context.Context, newsID int64) error
}

// Worker processes activity events sequentially. Processing one event is
// idempotent-enough for at-least-once delivery: a redelivered view lands
// as a duplicate activity row, which the ranking layer collapses.
type Worker struct {
	store   Store
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger
}

// NewWorker creates an event worker with a circuit breaker guarding the
// storage writes.
func NewWorker(store Store, logger zerolog.Logger) *Worker {
	w := &Worker{
		store:  store,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
	w.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "activity-writes",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			w.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
	return w
}

// HandleMessage processes one stream message. A nil return means the
// message is settled (processed, ignored, or dropped) and must be acked.
// A non-nil return means processing failed transiently and the message
// must be nacked for redelivery.
func (w *Worker) HandleMessage(ctx context.Context, msg *message.Message) error {
	ev, err := ParseEvent(msg.Payload)
	if err != nil {
		// Redelivery cannot fix a malformed payload; drop it so it does
		// not poison the stream.
		w.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed event")
		metrics.EventsProcessed.WithLabelValues("malformed", "dropped").Inc()
		return nil
	}

	if ev.Type != TypeNewsViewed {
		w.logger.Debug().Str("event_type", string(ev.Type)).Msg("Ignoring unhandled event type")
		metrics.EventsProcessed.WithLabelValues(string(ev.Type), "ignored").Inc()
		return nil
	}

	if err := w.recordView(ctx, ev); err != nil {
		w.logger.Error().Err(err).
			Int64("user_id", ev.UserID).
			Int64("news_id", ev.NewsID).
			Msg("Storing activity failed, requeueing event")
		metrics.EventsProcessed.WithLabelValues(string(ev.Type), "requeued").Inc()
		return err
	}

	metrics.EventsProcessed.WithLabelValues(string(ev.Type), "processed").Inc()
	return nil
}

// recordView appends the activity record and bumps the article's view
// counter, both behind the circuit breaker.
func (w *Worker) recordView(ctx context.Context, ev *ActivityEvent) error {
	_, err := w.breaker.Execute(func() (any, error) {
		activity := &models.Activity{
			UserID:    ev.UserID,
			NewsID:    ev.NewsID,
			Kind:      models.ActivityView,
			Timestamp: ev.Timestamp,
		}
		if err := w.store.InsertActivity(ctx, activity); err != nil {
			return nil, err
		}
		if err := w.store.IncrementViewCount(ctx, ev.NewsID); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("storage circuit open: %w", err)
		}
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// Run consumes messages from the channel until the context is canceled
// or the channel closes. Messages are acked or nacked according to
// HandleMessage's verdict; consumption is strictly sequential.
func (w *Worker) Run(ctx context.Context, messages <-chan *message.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := w.HandleMessage(ctx, msg); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}
