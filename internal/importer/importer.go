// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package importer loads a JSON-lines news dataset into the catalog and
// optionally backfills embeddings for the imported articles.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/newsshelf/recservice/internal/config"
	"github.com/newsshelf/recservice/internal/embedding"
	"github.com/newsshelf/recservice/internal/models"
	"github.com/newsshelf/recservice/internal/vector"
)

// Store is the storage surface the importer writes through.
// Implemented by database.DB.
type Store interface {
	InsertArticle(ctx context.Context, a *models.Article) error
	ArticlesWithoutVectors(ctx context.Context, limit int) ([]models.Article, error)
	UpdateArticleVectors(ctx context.Context, id int64, titleBlob, descBlob []byte) error
}

// Importer loads the news catalog from a dataset file.
type Importer struct {
	store   Store
	encoder embedding.Encoder
	cfg     *config.ImportConfig
	logger  zerolog.Logger
}

// New creates an importer. encoder may be nil; embeddings are then
// skipped regardless of configuration.
func New(store Store, encoder embedding.Encoder, cfg *config.ImportConfig, logger zerolog.Logger) *Importer {
	return &Importer{
		store:   store,
		encoder: encoder,
		cfg:     cfg,
		logger:  logger.With().Str("component", "importer").Logger(),
	}
}

// datasetRecord is one line of the dataset file.
type datasetRecord struct {
	Category         string `json:"category"`
	Headline         string `json:"headline"`
	ShortDescription string `json:"short_description"`
	Authors          string `json:"authors"`
	Link             string `json:"link"`
	Date             string `json:"date"`
}

// Run imports the dataset and, when configured, backfills embeddings.
// Malformed lines are counted and skipped; the import proceeds.
func (imp *Importer) Run(ctx context.Context) error {
	if err := imp.importDataset(ctx); err != nil {
		return err
	}
	if imp.cfg.GenerateEmbeddings && imp.encoder != nil {
		return imp.backfillEmbeddings(ctx)
	}
	return nil
}

func (imp *Importer) importDataset(ctx context.Context) error {
	f, err := os.Open(imp.cfg.DatasetPath)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	// Some dataset lines carry long descriptions; 1 MiB covers them.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var imported, skipped int
	start := time.Now()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		article, err := parseRecord(line)
		if err != nil {
			skipped++
			imp.logger.Debug().Err(err).Msg("Skipping malformed dataset line")
			continue
		}
		if err := imp.store.InsertArticle(ctx, article); err != nil {
			return fmt.Errorf("import article %q: %w", article.Link, err)
		}
		imported++

		if imported%10000 == 0 {
			imp.logger.Info().Int("imported", imported).Msg("Import progress")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}

	imp.logger.Info().
		Int("imported", imported).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("Dataset import complete")
	return nil
}

// parseRecord converts a dataset line to an Article.
func parseRecord(line []byte) (*models.Article, error) {
	var rec datasetRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Headline == "" || rec.Link == "" || rec.Category == "" {
		return nil, fmt.Errorf("record missing headline, link or category")
	}

	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", rec.Date, err)
	}

	return &models.Article{
		Category:         rec.Category,
		Title:            rec.Headline,
		ShortDescription: rec.ShortDescription,
		Authors:          rec.Authors,
		Link:             rec.Link,
		Date:             date,
	}, nil
}

// backfillEmbeddings encodes title and description for every article
// still lacking vectors, in batches, until none remain. Encoder failures
// on one article leave it vectorless for a later run.
func (imp *Importer) backfillEmbeddings(ctx context.Context) error {
	batchSize := imp.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	var processed, failed int
	for {
		pending, err := imp.store.ArticlesWithoutVectors(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("load pending articles: %w", err)
		}
		if len(pending) == 0 {
			break
		}

		var progressed bool
		for _, a := range pending {
			if err := imp.embedArticle(ctx, &a); err != nil {
				failed++
				imp.logger.Warn().Err(err).Int64("news_id", a.ID).Msg("Embedding failed, leaving article vectorless")
				continue
			}
			progressed = true
			processed++
		}

		// A batch where nothing succeeded would loop forever on the
		// same articles; stop and let the next run retry.
		if !progressed {
			imp.logger.Error().Int("failed", failed).Msg("Embedding backfill stalled")
			break
		}
	}

	imp.logger.Info().Int("embedded", processed).Int("failed", failed).Msg("Embedding backfill complete")
	return nil
}

func (imp *Importer) embedArticle(ctx context.Context, a *models.Article) error {
	titleVec, err := imp.encoder.Encode(ctx, a.Title)
	if err != nil {
		return fmt.Errorf("encode title: %w", err)
	}
	text := a.ShortDescription
	if text == "" {
		text = a.Title
	}
	descVec, err := imp.encoder.Encode(ctx, text)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}

	return imp.store.UpdateArticleVectors(ctx, a.ID, vector.Encode(titleVec), vector.Encode(descVec))
}
