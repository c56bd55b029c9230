// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package services

import (
	"context"
	"fmt"

	"github.com/newsshelf/recservice/internal/ingest"
)

// WorkerService runs the activity event worker under supervision. Each
// (re)start opens a fresh subscription, so a crashed worker resumes from
// the durable consumer's position.
type WorkerService struct {
	subscriber *ingest.Subscriber
	worker     *ingest.Worker
}

// NewWorkerService wraps the subscriber and worker as a supervised
// service.
func NewWorkerService(subscriber *ingest.Subscriber, worker *ingest.Worker) *WorkerService {
	return &WorkerService{subscriber: subscriber, worker: worker}
}

// Serve implements suture.Service.
func (s *WorkerService) Serve(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to activity stream: %w", err)
	}
	return s.worker.Run(ctx, messages)
}

// String identifies the service in supervisor logs.
func (s *WorkerService) String() string {
	return "event-worker"
}
