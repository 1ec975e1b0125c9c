package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements 启动时建表（幂等）
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS emails (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		account_id TEXT NOT NULL,
		message_id TEXT NOT NULL,
		thread_id TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		from_email TEXT NOT NULL,
		from_name TEXT NOT NULL DEFAULT '',
		to_email TEXT NOT NULL DEFAULT '',
		cc TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		labels TEXT[] NOT NULL DEFAULT '{}',
		is_unread BOOLEAN NOT NULL DEFAULT TRUE,
		is_important BOOLEAN NOT NULL DEFAULT FALSE,
		has_attachments BOOLEAN NOT NULL DEFAULT FALSE,
		received_at TIMESTAMPTZ NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		priority_score INT NOT NULL DEFAULT 0,
		priority_category TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		draft_failed BOOLEAN NOT NULL DEFAULT FALSE,
		dedup_key TEXT NOT NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_from_email ON emails (from_email)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails (received_at)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_priority ON emails (priority_score DESC)`,

	`CREATE TABLE IF NOT EXISTS sender_profiles (
		id BIGSERIAL PRIMARY KEY,
		email_address TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		total_emails_received INT NOT NULL DEFAULT 0,
		last_email_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
		avg_priority_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		common_topics TEXT[] NOT NULL DEFAULT '{}',
		relationship_type TEXT NOT NULL DEFAULT '',
		response_pattern TEXT NOT NULL DEFAULT '',
		typical_response_hrs INT,
		writing_style_notes TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS draft_responses (
		id BIGSERIAL PRIMARY KEY,
		email_id TEXT NOT NULL UNIQUE REFERENCES emails(id),
		draft_text TEXT NOT NULL,
		edited_text TEXT,
		model_used TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		current_version INT NOT NULL DEFAULT 1,
		total_versions INT NOT NULL DEFAULT 1,
		approved_at TIMESTAMPTZ,
		approved_by TEXT NOT NULL DEFAULT '',
		rejected_at TIMESTAMPTZ,
		rejected_by TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		sent_at TIMESTAMPTZ,
		sent_via TEXT NOT NULL DEFAULT '',
		feedback_score INT,
		feedback_notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_drafts_status ON draft_responses (status)`,

	`CREATE TABLE IF NOT EXISTS draft_versions (
		id BIGSERIAL PRIMARY KEY,
		draft_id BIGINT NOT NULL REFERENCES draft_responses(id),
		version_number INT NOT NULL,
		text TEXT NOT NULL,
		model_used TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (draft_id, version_number)
	)`,

	`CREATE TABLE IF NOT EXISTS draft_approval_history (
		id BIGSERIAL PRIMARY KEY,
		draft_id BIGINT NOT NULL REFERENCES draft_responses(id),
		action TEXT NOT NULL,
		performed_by TEXT NOT NULL DEFAULT '',
		performed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		notes TEXT NOT NULL DEFAULT '',
		metadata JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_approval_history_draft ON draft_approval_history (draft_id)`,

	`CREATE TABLE IF NOT EXISTS api_usage (
		id BIGSERIAL PRIMARY KEY,
		service TEXT NOT NULL,
		action TEXT NOT NULL DEFAULT '',
		ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		tokens_used INT NOT NULL DEFAULT 0,
		cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL DEFAULT TRUE,
		metadata JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_usage_ts ON api_usage (ts)`,

	`CREATE TABLE IF NOT EXISTS draft_generation_log (
		id BIGSERIAL PRIMARY KEY,
		email_id TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		draft_id BIGINT NOT NULL DEFAULT 0,
		generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gen_log_sender ON draft_generation_log (sender_email, generated_at)`,

	`CREATE TABLE IF NOT EXISTS ai_edit_jobs (
		id TEXT PRIMARY KEY,
		draft_id BIGINT NOT NULL REFERENCES draft_responses(id),
		instruction TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		result_text TEXT NOT NULL DEFAULT '',
		error_msg TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS sync_log (
		id BIGSERIAL PRIMARY KEY,
		account_id TEXT NOT NULL,
		sync_completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		emails_fetched INT NOT NULL DEFAULT 0,
		new_emails INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS outbox_events (
		id BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id BIGINT,
		routing_key TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_events (status, next_retry_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates all tables on startup if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
