package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/excuse"
)

type excuseRepository struct {
	db *excuseTable
}

var _ excuse.Repository = (*excuseRepository)(nil) // interface compliance check

func NewExcuseRepository(db *DB) excuse.Repository {
	return &excuseRepository{db: db.excuse}
}

func (repo *excuseRepository) query() []excuse.Excuse {
	excuses := make([]excuse.Excuse, 0, len(repo.db.table))
	for _, exc := range repo.db.table {
		excuses = append(excuses, *exc)
	}
	return excuses
}

func (repo *excuseRepository) CreateExcuse(_ context.Context, exc excuse.Excuse) (excuse.Excuse, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exc.ID = uuid.New().String()
	repo.db.table[exc.ID] = &exc
	return exc, nil
}

func (repo *excuseRepository) GetExcuse(_ context.Context, id string) (excuse.Excuse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if exc, ok := repo.db.table[id]; ok {
		return *exc, nil
	}
	return excuse.Excuse{}, excuse.ErrNotFound
}

func (repo *excuseRepository) GetActiveExcuse(_ context.Context, memberID, date string) (excuse.Excuse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, exc := range repo.query() {
		if exc.MemberID == memberID && exc.Date == date && exc.Active() {
			return exc, nil
		}
	}
	return excuse.Excuse{}, excuse.ErrNotFound
}

func (repo *excuseRepository) QueryExcuses(_ context.Context, filter *excuse.QueryFilter, _ []core.DBOrdering) ([]excuse.Excuse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excuses := repo.query()

	if filter != nil && !filter.IsEmpty() {
		var filtered []excuse.Excuse
		for _, exc := range excuses {
			if filter.MemberID != "" && exc.MemberID != filter.MemberID {
				continue
			}
			if filter.Status != "" && exc.Status != filter.Status {
				continue
			}
			if filter.Kind != "" && exc.Kind != filter.Kind {
				continue
			}
			if filter.DateFrom != "" && exc.Date < filter.DateFrom {
				continue
			}
			if filter.DateTo != "" && exc.Date > filter.DateTo {
				continue
			}
			filtered = append(filtered, exc)
		}
		excuses = filtered
	}

	sort.Slice(excuses, func(i, j int) bool { return excuses[i].RequestedAt.After(excuses[j].RequestedAt) })
	return excuses, nil
}

func (repo *excuseRepository) UpdateExcuseStatus(_ context.Context, id string, status excuse.Status, notes, decidedBy string, decidedAt time.Time) (excuse.Excuse, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exc, ok := repo.db.table[id]
	if !ok {
		return excuse.Excuse{}, excuse.ErrNotFound
	}
	exc.Status = status
	exc.AdminNotes = notes
	exc.DecidedBy = decidedBy
	exc.DecidedAt = decidedAt
	exc.UpdatedAt = decidedAt
	return *exc, nil
}
