package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAuthorityExceeded indicates a document total above the caller's
// approving authority.
var ErrAuthorityExceeded = errors.New("approving authority exceeded")

// AuthorityControl enforces per-company approval limits on document totals
// and keeps an approval trail.
type AuthorityControl struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuthorityControl constructs AuthorityControl.
func NewAuthorityControl(pool *pgxpool.Pool, logger *slog.Logger) *AuthorityControl {
	return &AuthorityControl{pool: pool, logger: logger}
}

// ValidateApprovingAuthority checks the grand total of a document against
// the configured authorization rule for its type and company. Documents
// below the threshold, or types/companies without a rule, always pass.
func (a *AuthorityControl) ValidateApprovingAuthority(ctx context.Context, docType, company string, grandTotal float64) error {
	if a == nil {
		return nil
	}
	var limit float64
	err := a.pool.QueryRow(ctx, `SELECT max_amount FROM authorization_rules
WHERE doc_type=$1 AND company=$2 LIMIT 1`, docType, company).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if grandTotal > limit {
		return fmt.Errorf("%w: %s total %.2f is above the approval limit %.2f for %s",
			ErrAuthorityExceeded, docType, grandTotal, limit, company)
	}
	return nil
}

// ApprovalEntry records one approval-trail row.
type ApprovalEntry struct {
	Module  string
	RefID   uuid.UUID
	ActorID int64
	Action  string
	Note    string
	At      time.Time
}

// Record writes an approval-trail entry.
func (a *AuthorityControl) Record(ctx context.Context, entry ApprovalEntry) error {
	if a == nil {
		return errors.New("authority control not initialised")
	}
	if entry.Module == "" || entry.Action == "" {
		return errors.New("approval module and action required")
	}
	if entry.RefID == uuid.Nil {
		return errors.New("approval ref id required")
	}
	_, err := a.pool.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, entry.Module, entry.RefID, entry.ActorID, entry.Action, entry.Note, entry.At)
	if err != nil && a.logger != nil {
		a.logger.Error("record approval", slog.Any("error", err))
	}
	return err
}
