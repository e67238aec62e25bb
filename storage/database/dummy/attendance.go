package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/himig/core/attendance"
)

type attendanceRepository struct {
	session *sessionTable
	log     *logTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{session: db.session, log: db.log}
}

func (repo *attendanceRepository) CreateSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	repo.session.Lock()
	defer repo.session.Unlock()

	sess.ID = uuid.New().String()
	repo.session.table[sess.ID] = &sess
	return sess, nil
}

func (repo *attendanceRepository) UpdateSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	repo.session.Lock()
	defer repo.session.Unlock()

	if _, ok := repo.session.table[sess.ID]; !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	repo.session.table[sess.ID] = &sess
	return sess, nil
}

func (repo *attendanceRepository) GetSession(_ context.Context, date string) (attendance.Session, error) {
	repo.session.RLock()
	defer repo.session.RUnlock()

	for _, sess := range repo.session.table {
		if sess.Date == date {
			return *sess, nil
		}
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) GetSessionByID(_ context.Context, id string) (attendance.Session, error) {
	repo.session.RLock()
	defer repo.session.RUnlock()

	if sess, ok := repo.session.table[id]; ok {
		return *sess, nil
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) QuerySessions(_ context.Context, dateFrom, dateTo string) ([]attendance.Session, error) {
	repo.session.RLock()
	defer repo.session.RUnlock()

	sessions := make([]attendance.Session, 0, len(repo.session.table))
	for _, sess := range repo.session.table {
		if dateFrom != "" && sess.Date < dateFrom {
			continue
		}
		if dateTo != "" && sess.Date > dateTo {
			continue
		}
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Date < sessions[j].Date })
	return sessions, nil
}

func (repo *attendanceRepository) CreateLog(_ context.Context, log attendance.Log) (attendance.Log, error) {
	repo.log.Lock()
	defer repo.log.Unlock()

	log.ID = uuid.New().String()
	repo.log.table[log.ID] = &log
	return log, nil
}

func (repo *attendanceRepository) GetLog(_ context.Context, memberID, date string) (attendance.Log, error) {
	repo.log.RLock()
	defer repo.log.RUnlock()

	for _, log := range repo.log.table {
		if log.MemberID == memberID && log.Date == date {
			return *log, nil
		}
	}
	return attendance.Log{}, attendance.ErrLogNotFound
}

func (repo *attendanceRepository) QueryLogs(_ context.Context, memberID, dateFrom, dateTo string) ([]attendance.Log, error) {
	repo.log.RLock()
	defer repo.log.RUnlock()

	logs := make([]attendance.Log, 0, len(repo.log.table))
	for _, log := range repo.log.table {
		if log.MemberID != memberID {
			continue
		}
		if dateFrom != "" && log.Date < dateFrom {
			continue
		}
		if dateTo != "" && log.Date > dateTo {
			continue
		}
		logs = append(logs, *log)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Date < logs[j].Date })
	return logs, nil
}
