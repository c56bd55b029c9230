// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/newsshelf/recservice/internal/logging"
	"github.com/newsshelf/recservice/internal/metrics"
	"github.com/newsshelf/recservice/internal/models"
	"github.com/newsshelf/recservice/internal/vector"
)

// Candidate is a catalog article that possesses a description vector,
// decoded and ready for scoring.
type Candidate struct {
	ID     int64
	Vector []float32
}

// InsertArticle inserts a catalog entry and sets a.ID. Duplicate links are
// silently ignored (the import is re-runnable).
func (db *DB) InsertArticle(ctx context.Context, a *models.Article) error {
	start := time.Now()
	defer metrics.ObserveDBQuery("insert", "news", start)

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO news (category, title, short_description, authors, link, date,
			title_embedding, description_embedding, view_count, embedding_generated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (link) DO NOTHING
		 RETURNING id`,
		a.Category, a.Title, a.ShortDescription, a.Authors, a.Link, a.Date,
		a.TitleVector, a.DescriptionVector, a.ViewCount, a.EmbeddingGenerated)

	if err := row.Scan(&a.ID); err != nil {
		if err == sql.ErrNoRows {
			// Conflict on link: already imported.
			return nil
		}
		metrics.DBQueryErrors.WithLabelValues("insert", "news").Inc()
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// UpdateArticleVectors attaches embedding blobs to an article. The
// embedding_generated flag tracks description-vector presence, which is
// all the engine requires.
func (db *DB) UpdateArticleVectors(ctx context.Context, id int64, titleBlob, descBlob []byte) error {
	start := time.Now()
	defer metrics.ObserveDBQuery("update", "news", start)

	_, err := db.conn.ExecContext(ctx,
		`UPDATE news SET title_embedding = ?, description_embedding = ?, embedding_generated = ?
		 WHERE id = ?`,
		titleBlob, descBlob, len(descBlob) > 0, id)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("update", "news").Inc()
		return fmt.Errorf("update article vectors: %w", err)
	}
	return nil
}

// IncrementViewCount bumps the engagement counter for an article.
// The counter is monotonic; nothing ever decrements it.
func (db *DB) IncrementViewCount(ctx context.Context, newsID int64) error {
	start := time.Now()
	defer metrics.ObserveDBQuery("update", "news", start)

	_, err := db.conn.ExecContext(ctx,
		`UPDATE news SET view_count = view_count + 1 WHERE id = ?`, newsID)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("update", "news").Inc()
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// ArticleVectors fetches decoded description vectors for the given article
// ids. Articles without a vector are omitted; malformed blobs are logged
// and treated as absent, never aborting the batch.
func (db *DB) ArticleVectors(ctx context.Context, ids []int64) (map[int64][]float32, error) {
	if len(ids) == 0 {
		return map[int64][]float32{}, nil
	}

	start := time.Now()
	defer metrics.ObserveDBQuery("select", "news", start)

	query := fmt.Sprintf(
		`SELECT id, description_embedding FROM news
		 WHERE id IN (%s) AND description_embedding IS NOT NULL`,
		placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "news").Inc()
		return nil, fmt.Errorf("query article vectors: %w", err)
	}
	defer closeRows(rows)

	vectors := make(map[int64][]float32, len(ids))
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan article vector: %w", err)
		}
		v, err := vector.Decode(blob)
		if err != nil {
			logging.Warn().Err(err).Int64("news_id", id).Msg("Malformed description vector, treating as absent")
			continue
		}
		vectors[id] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article vectors: %w", err)
	}
	return vectors, nil
}

// CandidateArticles returns every catalog article that has a description
// vector and is not in the exclude set. This is the brute-force candidate
// scan: catalog sizes in this domain keep full comparison tractable.
func (db *DB) CandidateArticles(ctx context.Context, exclude []int64) ([]Candidate, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "news", start)

	query := `SELECT id, description_embedding FROM news WHERE description_embedding IS NOT NULL`
	args := []any{}
	if len(exclude) > 0 {
		query += fmt.Sprintf(` AND id NOT IN (%s)`, placeholders(len(exclude)))
		args = int64Args(exclude)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "news").Inc()
		return nil, fmt.Errorf("query candidate articles: %w", err)
	}
	defer closeRows(rows)

	var candidates []Candidate
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		v, err := vector.Decode(blob)
		if err != nil {
			logging.Warn().Err(err).Int64("news_id", id).Msg("Malformed description vector, skipping candidate")
			continue
		}
		candidates = append(candidates, Candidate{ID: id, Vector: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// PopularArticles returns up to n articles ordered by view count
// descending, ties broken by ascending id for determinism.
func (db *DB) PopularArticles(ctx context.Context, n int) ([]models.Article, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "news", start)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, category, title, short_description, authors, link, date, view_count
		 FROM news
		 ORDER BY view_count DESC, id ASC
		 LIMIT ?`, n)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "news").Inc()
		return nil, fmt.Errorf("query popular articles: %w", err)
	}
	defer closeRows(rows)

	return scanArticles(rows)
}

// ArticlesByIDs fetches article metadata for the given ids, keyed by id.
func (db *DB) ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]models.Article, error) {
	if len(ids) == 0 {
		return map[int64]models.Article{}, nil
	}

	start := time.Now()
	defer metrics.ObserveDBQuery("select", "news", start)

	query := fmt.Sprintf(
		`SELECT id, category, title, short_description, authors, link, date, view_count
		 FROM news WHERE id IN (%s)`,
		placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "news").Inc()
		return nil, fmt.Errorf("query articles by ids: %w", err)
	}
	defer closeRows(rows)

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}
	return byID, nil
}

// ArticlesWithoutVectors returns up to limit articles that still need
// embeddings, for the import-time backfill.
func (db *DB) ArticlesWithoutVectors(ctx context.Context, limit int) ([]models.Article, error) {
	start := time.Now()
	defer metrics.ObserveDBQuery("select", "news", start)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, category, title, short_description, authors, link, date, view_count
		 FROM news
		 WHERE NOT embedding_generated
		 ORDER BY id ASC
		 LIMIT ?`, limit)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "news").Inc()
		return nil, fmt.Errorf("query articles without vectors: %w", err)
	}
	defer closeRows(rows)

	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]models.Article, error) {
	var articles []models.Article
	for rows.Next() {
		var a models.Article
		var shortDesc, authors sql.NullString
		if err := rows.Scan(&a.ID, &a.Category, &a.Title, &shortDesc, &authors,
			&a.Link, &a.Date, &a.ViewCount); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.ShortDescription = shortDesc.String
		a.Authors = authors.String
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing rows")
	}
}
