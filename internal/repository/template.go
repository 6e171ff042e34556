package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/matching"
)

// TemplateRepository persists recurring-payment templates. The matching
// engine only reads them; link/create decisions are written back here.
type TemplateRepository interface {
	Create(ctx context.Context, tpl matching.Template) (matching.Template, error)
	Get(ctx context.Context, id uuid.UUID) (matching.Template, error)
	List(ctx context.Context) ([]matching.Template, error)
	ListByFingerprint(ctx context.Context, fingerprint string) ([]matching.Template, error)
	RecordMatch(ctx context.Context, id uuid.UUID) error
}

type templateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTemplateRepository(db *DB, logger *slog.Logger) TemplateRepository {
	return &templateRepository{db: db, logger: logger}
}

func (r *templateRepository) Create(ctx context.Context, tpl matching.Template) (matching.Template, error) {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO templates
		 (id, vendor_fingerprint, amount_min, amount_max, due_day_of_month, currency,
		  matched_document_count, last_matched_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		tpl.ID.String(), tpl.VendorFingerprint, tpl.AmountMin, tpl.AmountMax,
		tpl.DueDayOfMonth, tpl.Currency, tpl.MatchedDocumentCount,
		formatNullableTime(tpl.LastMatchedAt),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		r.logger.Error("failed to create template", "fingerprint", tpl.VendorFingerprint, "error", err)
		return matching.Template{}, common.NewAppError("TEMPLATE_CREATE", "failed to create template", err)
	}
	r.logger.Info("template created", "id", tpl.ID, "fingerprint", tpl.VendorFingerprint)
	return tpl, nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (matching.Template, error) {
	rows, err := r.query(ctx, r.db.rebind(selectTemplates+` WHERE id = ?`), id.String())
	if err != nil {
		return matching.Template{}, err
	}
	if len(rows) == 0 {
		return matching.Template{}, common.ErrNotFound
	}
	return rows[0], nil
}

func (r *templateRepository) List(ctx context.Context) ([]matching.Template, error) {
	return r.query(ctx, selectTemplates+` ORDER BY created_at`)
}

func (r *templateRepository) ListByFingerprint(ctx context.Context, fingerprint string) ([]matching.Template, error) {
	return r.query(ctx, r.db.rebind(selectTemplates+` WHERE vendor_fingerprint = ? ORDER BY created_at`), fingerprint)
}

// RecordMatch bumps the matched-document counter after a link decision.
func (r *templateRepository) RecordMatch(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE templates
		 SET matched_document_count = matched_document_count + 1,
		     last_matched_at = ?, updated_at = ?
		 WHERE id = ?`), now, now, id.String())
	if err != nil {
		return common.NewAppError("TEMPLATE_MATCH", "failed to record template match", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const selectTemplates = `SELECT id, vendor_fingerprint, amount_min, amount_max, due_day_of_month,
	currency, matched_document_count, last_matched_at, created_at, updated_at FROM templates`

func (r *templateRepository) query(ctx context.Context, query string, args ...any) ([]matching.Template, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("TEMPLATE_LIST", "failed to query templates", err)
	}
	defer rows.Close()

	var out []matching.Template
	for rows.Next() {
		var (
			tpl           matching.Template
			id            string
			lastMatchedAt sql.NullString
			createdAt     string
			updatedAt     string
		)
		err := rows.Scan(&id, &tpl.VendorFingerprint, &tpl.AmountMin, &tpl.AmountMax,
			&tpl.DueDayOfMonth, &tpl.Currency, &tpl.MatchedDocumentCount,
			&lastMatchedAt, &createdAt, &updatedAt)
		if err != nil {
			return nil, common.NewAppError("TEMPLATE_LIST", "failed to scan template", err)
		}
		if tpl.ID, err = uuid.Parse(id); err != nil {
			return nil, common.NewAppError("TEMPLATE_LIST", "stored template id is corrupt", err)
		}
		if tpl.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, common.NewAppError("TEMPLATE_LIST", "stored template timestamp is corrupt", err)
		}
		if tpl.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, common.NewAppError("TEMPLATE_LIST", "stored template timestamp is corrupt", err)
		}
		if lastMatchedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, lastMatchedAt.String)
			if err != nil {
				return nil, common.NewAppError("TEMPLATE_LIST", "stored template timestamp is corrupt", err)
			}
			tpl.LastMatchedAt = &t
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
