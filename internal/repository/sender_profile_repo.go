package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coltonheil/email-automation/internal/model"
)

type SenderProfileRepository struct {
	db *pgxpool.Pool
}

func NewSenderProfileRepository(db *pgxpool.Pool) *SenderProfileRepository {
	return &SenderProfileRepository{db: db}
}

// FindByAddress returns the profile for a sender, or nil when none exists.
func (r *SenderProfileRepository) FindByAddress(ctx context.Context, address string) (*model.SenderProfile, error) {
	query := `
		SELECT id, email_address, name, total_emails_received, last_email_at,
		       avg_priority_score, common_topics, relationship_type,
		       response_pattern, typical_response_hrs, writing_style_notes, updated_at
		FROM sender_profiles
		WHERE email_address = $1
	`
	var p model.SenderProfile
	err := r.db.QueryRow(ctx, query, address).Scan(
		&p.ID, &p.EmailAddress, &p.Name, &p.TotalEmailsReceived, &p.LastEmailAt,
		&p.AvgPriorityScore, &p.CommonTopics, &p.RelationshipType,
		&p.ResponsePattern, &p.TypicalResponseHrs, &p.WritingStyleNotes, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert replaces the derived profile for a sender.
func (r *SenderProfileRepository) Upsert(ctx context.Context, p *model.SenderProfile) error {
	query := `
		INSERT INTO sender_profiles (
			email_address, name, total_emails_received, last_email_at,
			avg_priority_score, common_topics, relationship_type,
			response_pattern, typical_response_hrs, writing_style_notes, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (email_address) DO UPDATE SET
			name = EXCLUDED.name,
			total_emails_received = EXCLUDED.total_emails_received,
			last_email_at = EXCLUDED.last_email_at,
			avg_priority_score = EXCLUDED.avg_priority_score,
			common_topics = EXCLUDED.common_topics,
			relationship_type = EXCLUDED.relationship_type,
			response_pattern = EXCLUDED.response_pattern,
			typical_response_hrs = EXCLUDED.typical_response_hrs,
			writing_style_notes = EXCLUDED.writing_style_notes,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		p.EmailAddress, p.Name, p.TotalEmailsReceived, p.LastEmailAt,
		p.AvgPriorityScore, p.CommonTopics, p.RelationshipType,
		p.ResponsePattern, p.TypicalResponseHrs, p.WritingStyleNotes,
	)
	return err
}
