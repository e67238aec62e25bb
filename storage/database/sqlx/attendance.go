package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

type sessionRow struct {
	ID        string    `db:"id"`
	Date      time.Time `db:"date"`
	StartTime string    `db:"start_time"`
	EndTime   string    `db:"end_time"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r sessionRow) toSession() attendance.Session {
	return attendance.Session{
		ID:        r.ID,
		Date:      r.Date.Format(core.DateLayout),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type logRow struct {
	ID         string    `db:"id"`
	MemberID   string    `db:"member_id"`
	Date       time.Time `db:"date"`
	RecordedAt time.Time `db:"recorded_at"`
	Method     string    `db:"method"`
	Arrival    string    `db:"arrival"`
}

func (r logRow) toLog() attendance.Log {
	return attendance.Log{
		ID:         r.ID,
		MemberID:   r.MemberID,
		Date:       r.Date.Format(core.DateLayout),
		RecordedAt: r.RecordedAt.UTC(),
		Method:     attendance.Method(r.Method),
		Arrival:    attendance.Arrival(r.Arrival),
	}
}

const (
	sessionColumns = `id, date, start_time, end_time, notes, created_at, updated_at`
	logColumns     = `id, member_id, date, recorded_at, method, arrival`
)

func (repo *attendanceRepository) CreateSession(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	q := `
INSERT INTO rehearsal_session (date, start_time, end_time, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

	err := repo.db.QueryRowContext(ctx, q,
		sess.Date, sess.StartTime, sess.EndTime, sess.Notes, sess.CreatedAt, sess.UpdatedAt,
	).Scan(&sess.ID)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	q := `
UPDATE rehearsal_session
SET start_time = $2,
    end_time   = $3,
    notes      = $4,
    updated_at = $5
WHERE id = $1`

	res, err := repo.db.ExecContext(ctx, q, sess.ID, sess.StartTime, sess.EndTime, sess.Notes, sess.UpdatedAt)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "updating session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return sess, nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, date string) (attendance.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM rehearsal_session WHERE date = $1`

	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, q, date); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "getting session")
	}
	return row.toSession(), nil
}

func (repo *attendanceRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM rehearsal_session WHERE id = $1`

	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "getting session")
	}
	return row.toSession(), nil
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, dateFrom, dateTo string) ([]attendance.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM rehearsal_session`
	var conds []string
	var args []interface{}

	if dateFrom != "" {
		conds = append(conds, `date >= ?`)
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		conds = append(conds, `date <= ?`)
		args = append(args, dateTo)
	}
	if len(conds) > 0 {
		q += ` WHERE ` + conds[0]
		for _, c := range conds[1:] {
			q += ` AND ` + c
		}
	}
	q += ` ORDER BY date ASC`

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	sessions := make([]attendance.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toSession())
	}
	return sessions, nil
}

func (repo *attendanceRepository) CreateLog(ctx context.Context, log attendance.Log) (attendance.Log, error) {
	q := `
INSERT INTO attendance_log (member_id, date, recorded_at, method, arrival)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

	err := repo.db.QueryRowContext(ctx, q,
		log.MemberID, log.Date, log.RecordedAt, log.Method, log.Arrival,
	).Scan(&log.ID)
	if err != nil {
		return attendance.Log{}, errors.Wrap(err, "creating log")
	}
	return log, nil
}

func (repo *attendanceRepository) GetLog(ctx context.Context, memberID, date string) (attendance.Log, error) {
	q := `SELECT ` + logColumns + ` FROM attendance_log WHERE member_id = $1 AND date = $2`

	var row logRow
	if err := repo.db.GetContext(ctx, &row, q, memberID, date); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return attendance.Log{}, attendance.ErrLogNotFound
		}
		return attendance.Log{}, errors.Wrap(err, "getting log")
	}
	return row.toLog(), nil
}

func (repo *attendanceRepository) QueryLogs(ctx context.Context, memberID, dateFrom, dateTo string) ([]attendance.Log, error) {
	q := `SELECT ` + logColumns + ` FROM attendance_log WHERE member_id = ?`
	args := []interface{}{memberID}

	if dateFrom != "" {
		q += ` AND date >= ?`
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		q += ` AND date <= ?`
		args = append(args, dateTo)
	}
	q += ` ORDER BY date ASC`

	var rows []logRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}

	logs := make([]attendance.Log, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, row.toLog())
	}
	return logs, nil
}
