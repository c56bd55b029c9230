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

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/newsshelf/recservice/internal/config"
)

// Subscriber wraps the Watermill JetStream subscriber. Consumption is
// durable and strictly sequential: one in-flight message at a time, so
// events apply to the activity log in stream order.
type Subscriber struct {
	subscriber message.Subscriber
	cfg        *config.NATSConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a durable JetStream subscriber bound to the
// configured stream.
func NewSubscriber(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(cfg.ConnectBackoff),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	// MaxAckPending 1 forces sequential consumption; DeliverAll replays
	// any events published before the durable consumer first existed.
	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(1),
		natsgo.AckWait(cfg.AckWait),
		natsgo.DeliverAll(),
		natsgo.BindStream(cfg.StreamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create stream subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, cfg: cfg, logger: logger}, nil
}

// Subscribe returns the message channel for the configured subject.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, s.cfg.Subject)
}

// Close shuts the subscriber down, waiting up to the configured close
// timeout for in-flight messages.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// WaitForTransport blocks until the NATS server answers, making a
// bounded number of connection attempts with a fixed backoff. Used at
// startup so the worker does not race an external broker that is still
// coming up.
func WaitForTransport(ctx context.Context, cfg *config.NATSConfig) error {
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		nc, err := natsgo.Connect(cfg.URL, natsgo.Timeout(5*time.Second))
		if err == nil {
			nc.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.ConnectBackoff):
		}
	}
	return fmt.Errorf("transport unreachable after %d attempts: %w", attempts, lastErr)
}

// ProvisionStream ensures the activity stream exists with the configured
// subject. Creating an already-existing stream is a no-op.
func ProvisionStream(cfg *config.NATSConfig) error {
	nc, err := natsgo.Connect(cfg.URL, natsgo.Timeout(5*time.Second))
	if err != nil {
		return fmt.Errorf("connect for stream provisioning: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("open jetstream context: %w", err)
	}

	_, err = js.AddStream(&natsgo.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  []string{cfg.Subject},
		Retention: natsgo.LimitsPolicy,
		Storage:   natsgo.FileStorage,
	})
	if err != nil && !errors.Is(err, natsgo.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("provision stream %s: %w", cfg.StreamName, err)
	}
	return nil
}
