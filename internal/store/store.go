package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "dealflow/pkg/errors"
)

// Store hands out per-attempt Sessions over a shared connection pool. The
// worker acquires one session at loop start and releases it unconditionally
// at loop end.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Acquire reserves a dedicated connection for one processing attempt.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

type Session struct {
	conn *sql.Conn
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) CreateMessage(ctx context.Context, msg *MessageRecord) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Status == "" {
		msg.Status = StatusPending
	}
	msg.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO messages (id, external_id, raw_text, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.conn.ExecContext(ctx, query,
		msg.ID, msg.ExternalID, msg.RawText, msg.Status, msg.Attempts, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *Session) GetMessage(ctx context.Context, id string) (*MessageRecord, error) {
	query := `
		SELECT id, external_id, raw_text, status, attempts,
		       partner_name, processed_at, error_message, created_at
		FROM messages
		WHERE id = $1
	`

	row := s.conn.QueryRowContext(ctx, query, id)

	var msg MessageRecord
	err := row.Scan(
		&msg.ID, &msg.ExternalID, &msg.RawText, &msg.Status, &msg.Attempts,
		&msg.PartnerName, &msg.ProcessedAt, &msg.ErrorMessage, &msg.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("message %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

// MarkProcessing flips the record to processing and increments attempts in a
// single durable write, committed before any external call so the attempt
// count is never undercounted across crashes. Returns the new attempt count.
func (s *Session) MarkProcessing(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE messages
		SET status = $1, attempts = attempts + 1
		WHERE id = $2
		RETURNING attempts
	`

	var attempts int
	err := s.conn.QueryRowContext(ctx, query, StatusProcessing, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("message %s not found", id))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to mark message processing: %w", err)
	}
	return attempts, nil
}

func (s *Session) MarkFailed(ctx context.Context, id string, errMsg string) error {
	query := `
		UPDATE messages
		SET status = $1, error_message = $2
		WHERE id = $3
	`

	if _, err := s.conn.ExecContext(ctx, query, StatusFailed, errMsg, id); err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	return nil
}

// CompleteMessage persists the DealRecord and marks the owning message
// completed in one transaction, so a deal exists iff its message reached
// completed.
func (s *Session) CompleteMessage(ctx context.Context, msgID string, partnerName string, deal *DealRecord) error {
	if deal.ExternalURL == "" {
		return pkgerrors.ErrValidation.WithMessage("deal external URL must not be empty")
	}
	if deal.ID == "" {
		deal.ID = uuid.New().String()
	}
	deal.MessageID = msgID
	deal.CreatedAt = time.Now().UTC()
	processedAt := deal.CreatedAt

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dealQuery := `
		INSERT INTO deals (
			id, message_id, geo, language_code, is_native, pricing_model,
			cpa_amount, crg_percentage, cpl_amount,
			deduction_limit, conversion_rate, conversion_current, conversion_details,
			sources, funnels, external_url, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	if _, err := tx.ExecContext(ctx, dealQuery,
		deal.ID, deal.MessageID, deal.Geo, deal.LanguageCode, deal.IsNative, deal.PricingModel,
		deal.CPAAmount, deal.CRGPercentage, deal.CPLAmount,
		deal.DeductionLimit, deal.ConversionRate, deal.ConversionCurrent, deal.ConversionDetails,
		pq.Array(deal.Sources), pq.Array(deal.Funnels), deal.ExternalURL, deal.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	msgQuery := `
		UPDATE messages
		SET status = $1, partner_name = $2, processed_at = $3, error_message = NULL
		WHERE id = $4
	`

	res, err := tx.ExecContext(ctx, msgQuery, StatusCompleted, partnerName, processedAt, msgID)
	if err != nil {
		return fmt.Errorf("failed to complete message: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("message %s not found", msgID))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

func (s *Session) ListMessages(ctx context.Context, status MessageStatus, limit int) ([]MessageRecord, error) {
	query := `
		SELECT id, external_id, raw_text, status, attempts,
		       partner_name, processed_at, error_message, created_at
		FROM messages
	`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := rows.Scan(
			&msg.ID, &msg.ExternalID, &msg.RawText, &msg.Status, &msg.Attempts,
			&msg.PartnerName, &msg.ProcessedAt, &msg.ErrorMessage, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return msgs, nil
}

func (s *Session) GetDealByMessage(ctx context.Context, msgID string) (*DealRecord, error) {
	query := `
		SELECT id, message_id, geo, language_code, is_native, pricing_model,
		       cpa_amount, crg_percentage, cpl_amount,
		       deduction_limit, conversion_rate, conversion_current, conversion_details,
		       sources, funnels, external_url, created_at
		FROM deals
		WHERE message_id = $1
	`

	row := s.conn.QueryRowContext(ctx, query, msgID)

	var deal DealRecord
	var sources, funnels pq.StringArray
	err := row.Scan(
		&deal.ID, &deal.MessageID, &deal.Geo, &deal.LanguageCode, &deal.IsNative, &deal.PricingModel,
		&deal.CPAAmount, &deal.CRGPercentage, &deal.CPLAmount,
		&deal.DeductionLimit, &deal.ConversionRate, &deal.ConversionCurrent, &deal.ConversionDetails,
		&sources, &funnels, &deal.ExternalURL, &deal.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("no deal for message %s", msgID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	deal.Sources = sources
	deal.Funnels = funnels

	return &deal, nil
}
