package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/attendance"
	"github.com/trezcool/himig/core/excuse"
	"github.com/trezcool/himig/core/user"
	dummydb "github.com/trezcool/himig/storage/database/dummy"
)

// OpenDB returns a fresh in-memory database.
func OpenDB() *dummydb.DB {
	db, _ := dummydb.Open()
	return db
}

// NewLogger returns a core.Logger writing to stdout only.
func NewLogger() core.Logger {
	return stdLogger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags|log.Lshortfile)}
}

type stdLogger struct {
	std *log.Logger
}

func (l stdLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l stdLogger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l stdLogger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l stdLogger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l stdLogger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l stdLogger) Fatal(msg string, args ...interface{}) { l.print(msg, args); l.std.Fatal(msg) }

// CreateUser creates a member account via the repository.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, section string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	if len(createdAt) > 0 {
		now = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{user.RoleMember}
	}
	usr := user.User{
		Name:         name,
		Username:     core.CleanString(uname, true),
		Email:        core.CleanString(email, true),
		VoiceSection: section,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	usr.SetActive(isActive)
	if err := usr.SetPassword("Dev!234x"); err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateSession schedules a rehearsal via the repository.
func CreateSession(t *testing.T, repo attendance.Repository, date, start, end string) attendance.Session {
	t.Helper()

	now := time.Now().UTC()
	sess, err := repo.CreateSession(context.Background(), attendance.Session{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSession(): %v", err)
	}
	return sess
}

// CreateLog records a check-in via the repository.
func CreateLog(t *testing.T, repo attendance.Repository, memberID, date string, arrival attendance.Arrival) attendance.Log {
	t.Helper()

	log, err := repo.CreateLog(context.Background(), attendance.Log{
		MemberID:   memberID,
		Date:       date,
		RecordedAt: time.Now().UTC(),
		Method:     attendance.MethodWeb,
		Arrival:    arrival,
	})
	if err != nil {
		t.Fatalf("CreateLog(): %v", err)
	}
	return log
}

// CreateExcuse submits a paalam via the repository with the given status.
func CreateExcuse(
	t *testing.T,
	repo excuse.Repository,
	memberID, date string,
	kind excuse.Kind,
	status excuse.Status,
	decidedBy ...string,
) excuse.Excuse {
	t.Helper()

	now := time.Now().UTC()
	exc, err := repo.CreateExcuse(context.Background(), excuse.Excuse{
		MemberID:    memberID,
		Date:        date,
		Kind:        kind,
		Reason:      "test reason",
		Status:      excuse.StatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateExcuse(): %v", err)
	}
	if status != excuse.StatusPending {
		admin := "admin"
		if len(decidedBy) > 0 {
			admin = decidedBy[0]
		}
		exc, err = repo.UpdateExcuseStatus(context.Background(), exc.ID, status, "", admin, time.Now().UTC())
		if err != nil {
			t.Fatalf("CreateExcuse(): %v", err)
		}
	}
	return exc
}
