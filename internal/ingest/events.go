// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package ingest consumes user activity events from the stream and
// appends them to the activity log with at-least-once semantics.
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EventType is the canonical activity event type after normalization.
type EventType string

const (
	TypeNewsViewed          EventType = "news_viewed"
	TypeUserRegistered      EventType = "user_registered"
	TypeFavoriteTopicsAdded EventType = "favorite_topics_added"
	TypeNewsSearched        EventType = "news_searched"
)

// ErrMalformed marks an event that can never be processed: undecodable
// payload, missing type, unknown type, or a news_viewed event without its
// required ids. Malformed events are dropped, not redelivered.
var ErrMalformed = errors.New("malformed event")

// ActivityEvent is the canonical form of a decoded stream event.
type ActivityEvent struct {
	Type      EventType
	UserID    int64
	NewsID    int64
	Timestamp time.Time
}

// rawEvent accepts the field spellings producers have historically used.
// Snake_case and CamelCase variants of the same field are both decoded;
// the first non-empty one wins.
type rawEvent struct {
	Event     string `json:"event"`
	EventAlt  string `json:"EventType"`
	UserID    *int64 `json:"user_id"`
	UserIDAlt *int64 `json:"UserId"`
	NewsID    *int64 `json:"news_id"`
	NewsIDAlt *int64 `json:"NewsId"`
	ArticleID *int64 `json:"article_id"`
	Timestamp string `json:"timestamp"`
}

// canonicalTypes maps normalized type spellings (lowercased, separators
// stripped) to the canonical EventType. The favorites event has shipped
// with both singular and plural "topic" over time; both must resolve.
var canonicalTypes = map[string]EventType{
	"newsviewed":          TypeNewsViewed,
	"userregistered":      TypeUserRegistered,
	"favoritetopicsadded": TypeFavoriteTopicsAdded,
	"favoritetopicadded":  TypeFavoriteTopicsAdded,
	"newssearched":        TypeNewsSearched,
}

// ParseEvent decodes a stream payload into canonical form. Any defect
// that redelivery cannot cure is reported as ErrMalformed.
func ParseEvent(payload []byte) (*ActivityEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	typeField := raw.Event
	if typeField == "" {
		typeField = raw.EventAlt
	}
	if typeField == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformed)
	}

	eventType, ok := canonicalTypes[normalizeType(typeField)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformed, typeField)
	}

	ev := &ActivityEvent{Type: eventType}

	if raw.UserID != nil {
		ev.UserID = *raw.UserID
	} else if raw.UserIDAlt != nil {
		ev.UserID = *raw.UserIDAlt
	}

	switch {
	case raw.NewsID != nil:
		ev.NewsID = *raw.NewsID
	case raw.NewsIDAlt != nil:
		ev.NewsID = *raw.NewsIDAlt
	case raw.ArticleID != nil:
		ev.NewsID = *raw.ArticleID
	}

	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, raw.Timestamp); err == nil {
			ev.Timestamp = ts
		}
		// An unparseable timestamp is not fatal; ingestion time is used.
	}

	if eventType == TypeNewsViewed {
		if ev.UserID <= 0 || ev.NewsID <= 0 {
			return nil, fmt.Errorf("%w: news_viewed without user_id or news_id", ErrMalformed)
		}
	}

	return ev, nil
}

// normalizeType lowercases and strips separators so that news_viewed,
// NewsViewed and NEWS_VIEWED all resolve to the same canonical type.
func normalizeType(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}
