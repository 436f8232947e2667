package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/creatorops/scout/config"
	"github.com/creatorops/scout/internal/qualify"
)

// Store is the Postgres persistence layer. It implements the pipeline's
// CandidateStore, ContentStore, and ActivityLog collaborator interfaces.
type Store struct {
	DB *sql.DB
}

// New opens a Postgres connection from configuration and verifies it with
// a bounded ping.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	dsn := cfg.URL
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Ping verifies database connectivity, used by the ops health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// DiscoveredCandidates returns discovered creators for a campaign ordered
// by follower count descending, capped to limit.
func (s *Store) DiscoveredCandidates(ctx context.Context, campaignID string, limit int) ([]qualify.Candidate, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, COALESCE(topics, '{}'), COALESCE(followers, 0), COALESCE(channel_url, '')
		FROM campaign_creators
		WHERE campaign_id = $1 AND pipeline_stage = 'discovered'
		ORDER BY followers DESC NULLS LAST
		LIMIT $2`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying discovered candidates: %w", err)
	}
	defer rows.Close()

	var candidates []qualify.Candidate
	for rows.Next() {
		var c qualify.Candidate
		var topics pq.StringArray
		if err := rows.Scan(&c.ID, &c.Name, &topics, &c.Followers, &c.ChannelURL); err != nil {
			return nil, fmt.Errorf("scanning candidate row: %w", err)
		}
		c.Topics = topics
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// UpdateCandidateStage records the terminal pipeline stage and ingestion
// status for a candidate.
func (s *Store) UpdateCandidateStage(ctx context.Context, candidateID, stage, status string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campaign_creators
		SET pipeline_stage = $2, ingestion_status = $3, updated_at = NOW()
		WHERE id = $1`, candidateID, stage, status)
	if err != nil {
		return fmt.Errorf("updating candidate %s stage: %w", candidateID, err)
	}
	return nil
}

// SaveContentItem upserts a content item keyed by its source URL so
// re-running a pipeline is idempotent. Returns the item id.
func (s *Store) SaveContentItem(ctx context.Context, item qualify.ContentItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshaling content metadata: %w", err)
	}

	var id string
	err = s.DB.QueryRowContext(ctx, `
		INSERT INTO content_items (id, candidate_id, platform, title, source_url, published_at, language, full_text, word_count, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (source_url) DO UPDATE
		SET title = EXCLUDED.title,
		    full_text = EXCLUDED.full_text,
		    word_count = EXCLUDED.word_count,
		    metadata = EXCLUDED.metadata
		RETURNING id`,
		item.ID, item.CandidateID, item.Platform, item.Title, item.SourceURL,
		item.PublishedAt, item.Language, item.FullText, item.WordCount, metadata).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("saving content item: %w", err)
	}
	return id, nil
}

// RecordRun appends one structured activity event summarizing a pipeline
// run.
func (s *Store) RecordRun(ctx context.Context, summary qualify.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO activity_log (id, campaign_id, event_type, payload, created_at)
		VALUES ($1, $2, 'qualification_run', $3, NOW())`,
		summary.RunID, summary.CampaignID, payload)
	if err != nil {
		return fmt.Errorf("recording run event: %w", err)
	}
	return nil
}

// SaveEvaluation persists a scoring result. A later rescoring of the same
// candidate/campaign pair supersedes the previous row.
func (s *Store) SaveEvaluation(ctx context.Context, eval qualify.Evaluation) error {
	doc, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("marshaling evaluation: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO evaluations (id, candidate_id, campaign_id, overall_score, coverage, needs_manual_review, review_reason, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (candidate_id, campaign_id) DO UPDATE
		SET id = EXCLUDED.id,
		    overall_score = EXCLUDED.overall_score,
		    coverage = EXCLUDED.coverage,
		    needs_manual_review = EXCLUDED.needs_manual_review,
		    review_reason = EXCLUDED.review_reason,
		    document = EXCLUDED.document,
		    created_at = EXCLUDED.created_at`,
		eval.ID, eval.CandidateID, eval.CampaignID, eval.OverallScore, eval.Coverage,
		eval.NeedsManualReview, eval.ReviewReason, doc, eval.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving evaluation: %w", err)
	}
	return nil
}
