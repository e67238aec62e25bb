package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/excuse"
)

var (
	// errors
	ErrSessionNotFound  = errors.New("no rehearsal is scheduled on this date")
	ErrSessionExists    = errors.New("a rehearsal is already scheduled on this date")
	ErrAlreadyCheckedIn = errors.New("already checked in for this rehearsal")
	ErrLogNotFound      = errors.New("attendance log not found")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		// GetSession finds the rehearsal scheduled on a date, or ErrSessionNotFound.
		GetSession(ctx context.Context, date string) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		QuerySessions(ctx context.Context, dateFrom, dateTo string) ([]Session, error)

		CreateLog(ctx context.Context, log Log) (Log, error)
		// GetLog finds a member's check-in for a date, or ErrLogNotFound.
		GetLog(ctx context.Context, memberID, date string) (Log, error)
		QueryLogs(ctx context.Context, memberID, dateFrom, dateTo string) ([]Log, error)
	}

	ServiceInterface interface {
		CreateSession(ctx context.Context, ns NewSession) (Session, error)
		UpdateSession(ctx context.Context, id string, us UpdateSession) (Session, error)
		QuerySessions(ctx context.Context, dateFrom, dateTo string) ([]Session, error)
		CheckIn(ctx context.Context, ci CheckIn, at time.Time) (Log, error)
		Report(ctx context.Context, memberID, dateFrom, dateTo string) (Report, error)
	}

	service struct {
		repo    Repository
		excRepo excuse.Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, excRepo excuse.Repository) ServiceInterface {
	return &service{
		repo:    repo,
		excRepo: excRepo,
	}
}

func (svc *service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	if _, err := svc.repo.GetSession(ctx, ns.Date); err == nil {
		return Session{}, core.NewValidationError(ErrSessionExists, core.FieldError{
			Field: "date",
			Error: ErrSessionExists.Error(),
		})
	} else if errors.Cause(err) != ErrSessionNotFound {
		return Session{}, errors.Wrap(err, "checking for existing session")
	}

	now := time.Now().UTC()
	sess := Session{
		Date:      ns.Date,
		StartTime: ns.StartTime,
		EndTime:   ns.EndTime,
		Notes:     ns.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) UpdateSession(ctx context.Context, id string, us UpdateSession) (Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if us.StartTime != "" {
		sess.StartTime = us.StartTime
	}
	if us.EndTime != "" {
		sess.EndTime = us.EndTime
	}
	sess.Notes = us.Notes
	sess.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, sess)
}

func (svc *service) QuerySessions(ctx context.Context, dateFrom, dateTo string) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, dateFrom, dateTo)
}

// CheckIn records a member's arrival for the rehearsal on ci.Date (today if
// empty). The on-time/late call is made here, once, against the session
// start plus the configured grace; the log is immutable afterwards.
func (svc *service) CheckIn(ctx context.Context, ci CheckIn, at time.Time) (Log, error) {
	date := ci.Date
	if date == "" {
		date = at.Format(core.DateLayout)
	}

	sess, err := svc.repo.GetSession(ctx, date)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return Log{}, core.NewValidationError(ErrSessionNotFound, core.FieldError{
				Field: "date",
				Error: ErrSessionNotFound.Error(),
			})
		}
		return Log{}, err
	}

	if _, err := svc.repo.GetLog(ctx, ci.MemberID, date); err == nil {
		return Log{}, core.NewValidationError(ErrAlreadyCheckedIn)
	} else if errors.Cause(err) != ErrLogNotFound {
		return Log{}, errors.Wrap(err, "checking for existing log")
	}

	arrival := ArrivalOnTime
	if start, err := sess.StartsAt(at.Location()); err == nil {
		if at.After(start.Add(core.Conf.LateArrivalGrace)) {
			arrival = ArrivalLate
		}
	}

	log := Log{
		MemberID:   ci.MemberID,
		Date:       date,
		RecordedAt: at.UTC(),
		Method:     ci.Method,
		Arrival:    arrival,
	}
	return svc.repo.CreateLog(ctx, log)
}

// Report fetches the three record sets and classifies every scheduled
// rehearsal date in the range. A fetch failure is returned as an error,
// never silently rendered as a clean, zero-absence report.
func (svc *service) Report(ctx context.Context, memberID, dateFrom, dateTo string) (Report, error) {
	sessions, err := svc.repo.QuerySessions(ctx, dateFrom, dateTo)
	if err != nil {
		return Report{}, errors.Wrap(err, "fetching sessions")
	}

	logs, err := svc.repo.QueryLogs(ctx, memberID, dateFrom, dateTo)
	if err != nil {
		return Report{}, errors.Wrap(err, "fetching logs")
	}

	excuses, err := svc.excRepo.QueryExcuses(ctx, &excuse.QueryFilter{
		MemberID: memberID,
		DateFrom: dateFrom,
		DateTo:   dateTo,
	}, nil)
	if err != nil {
		return Report{}, errors.Wrap(err, "fetching excuses")
	}

	return BuildReport(memberID, sessions, logs, excuses), nil
}
