package excuse_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/excuse"
	"github.com/trezcool/himig/core/user"
	emailsvc "github.com/trezcool/himig/services/email"
	dummydb "github.com/trezcool/himig/storage/database/dummy"
	testutil "github.com/trezcool/himig/tests"
)

func TestMain(m *testing.M) {
	core.InitValidators()
	user.InitValidators()
	excuse.InitValidators()
	core.ParseEmailTemplates(testutil.NewLogger())
	os.Exit(m.Run())
}

type fixture struct {
	svc     excuse.ServiceInterface
	repo    excuse.Repository
	member  user.User
	admin   user.User
	mailSvc core.EmailService
}

func setup(t *testing.T) fixture {
	t.Helper()
	emailsvc.ClearSentMessages()

	db := testutil.OpenDB()
	usrRepo := dummydb.NewUserRepository(db)
	excRepo := dummydb.NewExcuseRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)

	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	admin := testutil.CreateUser(t, usrRepo, "Sec Retary", "secretary", "sec@test.ph", user.SectionBass, user.AllRoles, true)

	return fixture{
		svc:     excuse.NewService(excRepo, usrSvc, mailSvc),
		repo:    excRepo,
		member:  member,
		admin:   admin,
		mailSvc: mailSvc,
	}
}

func Test_NewExcuse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    excuse.NewExcuse
		wantErr bool
	}{
		{name: "absence needs no eta", data: excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindAbsence, Reason: "family event"}},
		{name: "late requires eta", data: excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindLate, Reason: "class ran over"}, wantErr: true},
		{name: "late with eta", data: excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindLate, Reason: "class ran over", ETA: "18:45"}},
		{name: "step-out requires eta", data: excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindStepOut, Reason: "exam"}, wantErr: true},
		{name: "leave-early with eta", data: excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindLeaveEarly, Reason: "curfew", ETA: "20:00"}},
		{name: "unknown kind", data: excuse.NewExcuse{Date: "2025-01-20", Kind: "vacation", Reason: "beach"}, wantErr: true},
		{name: "bad date", data: excuse.NewExcuse{Date: "20-01-2025", Kind: excuse.KindAbsence, Reason: "family event"}, wantErr: true},
		{name: "missing reason", data: excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindAbsence}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_service_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exc, err := f.svc.Submit(ctx, excuse.NewExcuse{
		MemberID: f.member.ID,
		Date:     "2025-01-20",
		Kind:     excuse.KindAbsence,
		Reason:   "family event",
	})
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusPending, exc.Status)
	assert.False(t, exc.RequestedAt.IsZero())
	assert.True(t, exc.DecidedAt.IsZero())

	// the secretariat is notified
	if assert.Len(t, emailsvc.SentMessages, 1) {
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, core.Conf.AdminEmail, msg.To[0])
		assert.Contains(t, msg.TextContent, f.member.Name)
		assert.Contains(t, msg.TextContent, "2025-01-20")
	}

	// at most one active request per (member, date)
	_, err = f.svc.Submit(ctx, excuse.NewExcuse{
		MemberID: f.member.ID,
		Date:     "2025-01-20",
		Kind:     excuse.KindLate,
		Reason:   "traffic",
		ETA:      "18:30",
	})
	assert.True(t, core.IsValidationError(err))

	// a different date is fine
	_, err = f.svc.Submit(ctx, excuse.NewExcuse{
		MemberID: f.member.ID,
		Date:     "2025-01-27",
		Kind:     excuse.KindAbsence,
		Reason:   "family event",
	})
	assert.NoError(t, err)
}

func Test_service_Submit_afterRejection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	testutil.CreateExcuse(t, f.repo, f.member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusRejected, f.admin.ID)

	// a rejected request no longer blocks a new submission
	exc, err := f.svc.Submit(ctx, excuse.NewExcuse{
		MemberID: f.member.ID,
		Date:     "2025-01-20",
		Kind:     excuse.KindAbsence,
		Reason:   "second attempt",
	})
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusPending, exc.Status)
}

func Test_service_Approve(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exc := testutil.CreateExcuse(t, f.repo, f.member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)
	emailsvc.ClearSentMessages()

	approved, err := f.svc.Approve(ctx, exc.ID, f.admin)
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusApproved, approved.Status)
	assert.Equal(t, f.admin.ID, approved.DecidedBy)
	assert.False(t, approved.DecidedAt.IsZero())

	// the member is notified
	if assert.Len(t, emailsvc.SentMessages, 1) {
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, f.member.Email, msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "approved")
	}

	// approving an approved request is invalid
	_, err = f.svc.Approve(ctx, exc.ID, f.admin)
	assert.True(t, core.IsValidationError(err))

	_, err = f.svc.Approve(ctx, "nope", f.admin)
	assert.Equal(t, excuse.ErrNotFound, errors.Cause(err))
}

func Test_service_Decline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exc := testutil.CreateExcuse(t, f.repo, f.member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)
	emailsvc.ClearSentMessages()

	declined, err := f.svc.Decline(ctx, exc.ID, "insufficient documentation", f.admin)
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusRejected, declined.Status)
	assert.Equal(t, "insufficient documentation", declined.AdminNotes)
	assert.Equal(t, f.admin.ID, declined.DecidedBy)
	assert.False(t, declined.DecidedAt.IsZero())

	if assert.Len(t, emailsvc.SentMessages, 1) {
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, f.member.Email, msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "declined")
		assert.Contains(t, msg.TextContent, "insufficient documentation")
	}

	// declining a rejected request is invalid
	_, err = f.svc.Decline(ctx, exc.ID, "again", f.admin)
	assert.True(t, core.IsValidationError(err))
}

// An admin edit flips a decided request to the other decision.
func Test_service_decisionFlips(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exc := testutil.CreateExcuse(t, f.repo, f.member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)

	declined, err := f.svc.Decline(ctx, exc.ID, "insufficient documentation", f.admin)
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusRejected, declined.Status)

	// rejected -> approved
	approved, err := f.svc.Approve(ctx, exc.ID, f.admin)
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusApproved, approved.Status)
	// notes are retained for audit
	assert.Equal(t, "insufficient documentation", approved.AdminNotes)

	// approved -> rejected
	declined, err = f.svc.Decline(ctx, exc.ID, "changed my mind", f.admin)
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusRejected, declined.Status)
	assert.Equal(t, "changed my mind", declined.AdminNotes)
}

// A store write failure leaves the stored status untouched.
func Test_service_storeFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exc := testutil.CreateExcuse(t, f.repo, f.member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)

	errBoom := errors.New("store unavailable")
	svc := excuse.NewService(
		failingStatusRepo{Repository: f.repo, err: errBoom},
		user.NewServiceMock(dummydb.NewUserRepository(testutil.OpenDB()), f.mailSvc),
		f.mailSvc,
	)

	_, err := svc.Approve(ctx, exc.ID, f.admin)
	assert.Equal(t, errBoom, errors.Cause(err))

	stored, err := f.repo.GetExcuse(ctx, exc.ID)
	assert.NoError(t, err)
	assert.Equal(t, excuse.StatusPending, stored.Status)
	assert.True(t, stored.DecidedAt.IsZero())
}

type failingStatusRepo struct {
	excuse.Repository
	err error
}

func (r failingStatusRepo) UpdateExcuseStatus(context.Context, string, excuse.Status, string, string, time.Time) (excuse.Excuse, error) {
	return excuse.Excuse{}, r.err
}
