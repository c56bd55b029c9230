// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/newsshelf/recservice/internal/metrics"
	"github.com/newsshelf/recservice/internal/models"
)

// InsertActivity appends one activity record. The log is append-only and
// duplicates are legal: redelivered events simply land twice.
func (db *DB) InsertActivity(ctx context.Context, a *models.Activity) error {
	start := time.Now()
	defer metrics.ObserveDBQuery("insert", "user_activity", start)

	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_activity (user_id, news_id, activity_type, timestamp)
		 VALUES (?, ?, ?, ?)`,
		a.UserID, a.NewsID, a.Kind, ts)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("insert", "user_activity").Inc()
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// UserActivitySince returns the user's activity newer than since, most
// recent first. No activity yields an empty slice, not an error.
func (db *DB) UserActivitySince(ctx context.Context, userID int64, since time.Time) ([]models.Activity, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "user_activity", start)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, news_id, activity_type, timestamp
		 FROM user_activity
		 WHERE user_id = ? AND timestamp >= ?
		 ORDER BY timestamp DESC, id DESC`,
		userID, since)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "user_activity").Inc()
		return nil, fmt.Errorf("query user activity: %w", err)
	}
	defer closeRows(rows)

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.NewsID, &a.Kind, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

// CategoryCount pairs a news category with how many of the user's
// activities fell on articles in that category.
type CategoryCount struct {
	Category string
	Count    int64
}

// CategoryCounts aggregates the user's full activity history per article
// category in one pass, ordered by count descending then category
// ascending. Each viewed article counts once per category no matter how
// often it was viewed, and the sum of counts equals the user's distinct
// viewed articles, so callers can derive interest weights without a
// second query.
func (db *DB) CategoryCounts(ctx context.Context, userID int64) ([]CategoryCount, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "user_activity", start)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.category, COUNT(DISTINCT ua.news_id) AS cnt
		 FROM user_activity ua
		 JOIN news n ON n.id = ua.news_id
		 WHERE ua.user_id = ?
		 GROUP BY n.category
		 ORDER BY cnt DESC, n.category ASC`,
		userID)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "user_activity").Inc()
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer closeRows(rows)

	counts := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}
