package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/excuse"
)

type excuseRepository struct {
	db *sqlx.DB
}

var _ excuse.Repository = (*excuseRepository)(nil) // interface compliance check

func NewExcuseRepository(db *sqlx.DB) excuse.Repository {
	return &excuseRepository{db: db}
}

type excuseRow struct {
	ID          string      `db:"id"`
	MemberID    string      `db:"member_id"`
	Date        time.Time   `db:"date"`
	Kind        string      `db:"kind"`
	Reason      string      `db:"reason"`
	ETA         string      `db:"eta"`
	Status      string      `db:"status"`
	AdminNotes  string      `db:"admin_notes"`
	DecidedBy   null.String `db:"decided_by"`
	DecidedAt   null.Time   `db:"decided_at"`
	RequestedAt time.Time   `db:"requested_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r excuseRow) toExcuse() excuse.Excuse {
	exc := excuse.Excuse{
		ID:          r.ID,
		MemberID:    r.MemberID,
		Date:        r.Date.Format(core.DateLayout),
		Kind:        excuse.Kind(r.Kind),
		Reason:      r.Reason,
		ETA:         r.ETA,
		Status:      excuse.Status(r.Status),
		AdminNotes:  r.AdminNotes,
		DecidedBy:   r.DecidedBy.String,
		RequestedAt: r.RequestedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DecidedAt.Valid {
		exc.DecidedAt = r.DecidedAt.Time.UTC()
	}
	return exc
}

const excuseColumns = `id, member_id, date, kind, reason, eta, status, admin_notes, decided_by, decided_at, requested_at, updated_at`

func (repo *excuseRepository) CreateExcuse(ctx context.Context, exc excuse.Excuse) (excuse.Excuse, error) {
	q := `
INSERT INTO excuse_request (member_id, date, kind, reason, eta, status, requested_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

	err := repo.db.QueryRowContext(ctx, q,
		exc.MemberID, exc.Date, exc.Kind, exc.Reason, exc.ETA, exc.Status, exc.RequestedAt, exc.UpdatedAt,
	).Scan(&exc.ID)
	if err != nil {
		return excuse.Excuse{}, errors.Wrap(err, "creating excuse")
	}
	return exc, nil
}

func (repo *excuseRepository) GetExcuse(ctx context.Context, id string) (excuse.Excuse, error) {
	q := `SELECT ` + excuseColumns + ` FROM excuse_request WHERE id = $1`

	var row excuseRow
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return excuse.Excuse{}, excuse.ErrNotFound
		}
		return excuse.Excuse{}, errors.Wrap(err, "getting excuse")
	}
	return row.toExcuse(), nil
}

func (repo *excuseRepository) GetActiveExcuse(ctx context.Context, memberID, date string) (excuse.Excuse, error) {
	q := `SELECT ` + excuseColumns + ` FROM excuse_request
WHERE member_id = $1 AND date = $2 AND status != $3
ORDER BY requested_at DESC
LIMIT 1`

	var row excuseRow
	if err := repo.db.GetContext(ctx, &row, q, memberID, date, excuse.StatusRejected); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return excuse.Excuse{}, excuse.ErrNotFound
		}
		return excuse.Excuse{}, errors.Wrap(err, "getting active excuse")
	}
	return row.toExcuse(), nil
}

func (repo *excuseRepository) QueryExcuses(ctx context.Context, filter *excuse.QueryFilter, ordering []core.DBOrdering) ([]excuse.Excuse, error) {
	q := `SELECT ` + excuseColumns + ` FROM excuse_request`
	var conds []string
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		if filter.MemberID != "" {
			conds = append(conds, `member_id = ?`)
			args = append(args, filter.MemberID)
		}
		if filter.Status != "" {
			conds = append(conds, `status = ?`)
			args = append(args, filter.Status)
		}
		if filter.Kind != "" {
			conds = append(conds, `kind = ?`)
			args = append(args, filter.Kind)
		}
		if filter.DateFrom != "" {
			conds = append(conds, `date >= ?`)
			args = append(args, filter.DateFrom)
		}
		if filter.DateTo != "" {
			conds = append(conds, `date <= ?`)
			args = append(args, filter.DateTo)
		}
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "requested_at DESC")

	var rows []excuseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying excuses")
	}

	excuses := make([]excuse.Excuse, 0, len(rows))
	for _, row := range rows {
		excuses = append(excuses, row.toExcuse())
	}
	return excuses, nil
}

func (repo *excuseRepository) UpdateExcuseStatus(ctx context.Context, id string, status excuse.Status, notes, decidedBy string, decidedAt time.Time) (excuse.Excuse, error) {
	q := `
UPDATE excuse_request
SET status      = $2,
    admin_notes = $3,
    decided_by  = $4,
    decided_at  = $5,
    updated_at  = $5
WHERE id = $1
RETURNING ` + excuseColumns

	var row excuseRow
	if err := repo.db.GetContext(ctx, &row, q, id, status, notes, decidedBy, decidedAt); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return excuse.Excuse{}, excuse.ErrNotFound
		}
		return excuse.Excuse{}, errors.Wrap(err, "updating excuse status")
	}
	return row.toExcuse(), nil
}
