package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/attendance"
	"github.com/trezcool/himig/core/excuse"
	dummydb "github.com/trezcool/himig/storage/database/dummy"
	testutil "github.com/trezcool/himig/tests"
)

func setup(t *testing.T) (attendance.ServiceInterface, attendance.Repository, excuse.Repository) {
	t.Helper()
	db := testutil.OpenDB()
	attRepo := dummydb.NewAttendanceRepository(db)
	excRepo := dummydb.NewExcuseRepository(db)
	return attendance.NewService(attRepo, excRepo), attRepo, excRepo
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(core.DateLayout+" "+core.TimeLayout, date+" "+clock, time.UTC)
	if err != nil {
		t.Fatalf("at(): %v", err)
	}
	return ts
}

func Test_service_CreateSession(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, attendance.NewSession{Date: "2025-01-20", StartTime: "18:00", EndTime: "21:00"})
	assert.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	// one rehearsal per calendar date
	_, err = svc.CreateSession(ctx, attendance.NewSession{Date: "2025-01-20", StartTime: "19:00", EndTime: "22:00"})
	assert.True(t, core.IsValidationError(err))
}

func Test_service_UpdateSession(t *testing.T) {
	svc, attRepo, _ := setup(t)
	ctx := context.Background()

	sess := testutil.CreateSession(t, attRepo, "2025-01-20", "18:00", "21:00")

	updated, err := svc.UpdateSession(ctx, sess.ID, attendance.UpdateSession{StartTime: "18:30", Notes: "venue changed"})
	assert.NoError(t, err)
	assert.Equal(t, "18:30", updated.StartTime)
	assert.Equal(t, "21:00", updated.EndTime)
	assert.Equal(t, "venue changed", updated.Notes)

	_, err = svc.UpdateSession(ctx, "nope", attendance.UpdateSession{StartTime: "18:30"})
	assert.Equal(t, attendance.ErrSessionNotFound, errors.Cause(err))
}

func Test_service_CheckIn(t *testing.T) {
	svc, attRepo, _ := setup(t)
	ctx := context.Background()

	testutil.CreateSession(t, attRepo, "2025-01-20", "18:00", "21:00")

	t.Run("within grace is on-time", func(t *testing.T) {
		log, err := svc.CheckIn(ctx, attendance.CheckIn{MemberID: "m1", Date: "2025-01-20", Method: attendance.MethodWeb}, at(t, "2025-01-20", "18:10"))
		assert.NoError(t, err)
		assert.Equal(t, attendance.ArrivalOnTime, log.Arrival)
	})

	t.Run("past grace is late", func(t *testing.T) {
		log, err := svc.CheckIn(ctx, attendance.CheckIn{MemberID: "m2", Date: "2025-01-20", Method: attendance.MethodWeb}, at(t, "2025-01-20", "18:16"))
		assert.NoError(t, err)
		assert.Equal(t, attendance.ArrivalLate, log.Arrival)
	})

	t.Run("one log per member and date", func(t *testing.T) {
		_, err := svc.CheckIn(ctx, attendance.CheckIn{MemberID: "m1", Date: "2025-01-20", Method: attendance.MethodWeb}, at(t, "2025-01-20", "18:20"))
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("no session scheduled", func(t *testing.T) {
		_, err := svc.CheckIn(ctx, attendance.CheckIn{MemberID: "m1", Date: "2025-01-25", Method: attendance.MethodWeb}, at(t, "2025-01-25", "18:00"))
		assert.True(t, core.IsValidationError(err))
	})
}

func Test_service_Report(t *testing.T) {
	svc, attRepo, excRepo := setup(t)
	ctx := context.Background()

	testutil.CreateSession(t, attRepo, "2025-01-20", "18:00", "21:00")
	testutil.CreateSession(t, attRepo, "2025-01-21", "18:00", "21:00")
	testutil.CreateSession(t, attRepo, "2025-01-27", "18:00", "21:00")

	testutil.CreateLog(t, attRepo, "m1", "2025-01-20", attendance.ArrivalOnTime)
	testutil.CreateLog(t, attRepo, "m1", "2025-01-21", attendance.ArrivalLate)
	testutil.CreateExcuse(t, excRepo, "m1", "2025-01-21", excuse.KindLate, excuse.StatusApproved)

	report, err := svc.Report(ctx, "m1", "2025-01-01", "2025-01-31")
	assert.NoError(t, err)
	if assert.Len(t, report.Days, 3) {
		assert.Equal(t, attendance.StatusPresent, report.Days[0].Status)
		assert.Equal(t, attendance.StatusLate, report.Days[1].Status)
		assert.Equal(t, attendance.StatusUnexcusedAbsence, report.Days[2].Status)
	}

	// range excludes the last session
	report, err = svc.Report(ctx, "m1", "2025-01-20", "2025-01-21")
	assert.NoError(t, err)
	assert.Len(t, report.Days, 2)
}

// A store read failure must surface as an error, never as a clean report.
func Test_service_Report_storeFailure(t *testing.T) {
	_, attRepo, excRepo := setup(t)
	ctx := context.Background()

	testutil.CreateSession(t, attRepo, "2025-01-20", "18:00", "21:00")

	errBoom := errors.New("store unavailable")
	svc := attendance.NewService(failingLogRepo{Repository: attRepo, err: errBoom}, excRepo)

	_, err := svc.Report(ctx, "m1", "2025-01-01", "2025-01-31")
	assert.Equal(t, errBoom, errors.Cause(err))
}

type failingLogRepo struct {
	attendance.Repository
	err error
}

func (r failingLogRepo) QueryLogs(context.Context, string, string, string) ([]attendance.Log, error) {
	return nil, r.err
}
