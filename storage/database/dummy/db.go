package dummydb

import (
	"sync"

	"github.com/trezcool/himig/core/attendance"
	"github.com/trezcool/himig/core/excuse"
	"github.com/trezcool/himig/core/user"
)

type (
	DB struct {
		user    *userTable
		session *sessionTable
		log     *logTable
		excuse  *excuseTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*attendance.Session
	}

	logTable struct {
		sync.RWMutex
		table map[string]*attendance.Log
	}

	excuseTable struct {
		sync.RWMutex
		table map[string]*excuse.Excuse
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		session: &sessionTable{table: make(map[string]*attendance.Session)},
		log:     &logTable{table: make(map[string]*attendance.Log)},
		excuse:  &excuseTable{table: make(map[string]*excuse.Excuse)},
	}
	return db, nil
}
