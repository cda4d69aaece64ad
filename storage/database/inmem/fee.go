package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/schoolms/core/fee"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) *feeRepository {
	return &feeRepository{db: db}
}

// withInstallments returns a copy of f holding copies of its stored installments, ordered by due date.
func (repo *feeRepository) withInstallments(f fee.Fee) fee.Fee {
	var insts []fee.Installment
	for _, inst := range repo.db.installments {
		if inst.FeeID == f.ID {
			insts = append(insts, inst)
		}
	}
	fee.SortInstallments(insts)
	f.Installments = insts
	return f
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	f.ID = repo.db.nextPK("fee")
	f.Version = 0
	f.Installments = nil
	repo.db.fees[f.ID] = f
	return f, nil
}

func (repo *feeRepository) QueryFees(_ context.Context, filter fee.QueryFilter) ([]fee.Fee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fees := make([]fee.Fee, 0)
	for _, f := range repo.db.fees {
		if filter.StudentID != 0 && f.StudentID != filter.StudentID {
			continue
		}
		fees = append(fees, repo.withInstallments(f))
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].ID < fees[j].ID })
	return fees, nil
}

func (repo *feeRepository) GetFee(_ context.Context, id int) (fee.Fee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	f, ok := repo.db.fees[id]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	return repo.withInstallments(f), nil
}

// updateFee expects the write lock to be held.
func (repo *feeRepository) updateFee(f fee.Fee) (fee.Fee, error) {
	stored, ok := repo.db.fees[f.ID]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	if stored.Version != f.Version {
		return fee.Fee{}, fee.ErrConcurrencyConflict
	}
	f.Version++

	row := f
	row.Installments = nil
	repo.db.fees[f.ID] = row
	return f, nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	return repo.updateFee(f)
}

func (repo *feeRepository) DeleteFee(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.fees[id]; !ok {
		return fee.ErrNotFound
	}
	repo.db.deleteFee(id)
	return nil
}

func (repo *feeRepository) GetInstallment(_ context.Context, id int) (fee.Installment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inst, ok := repo.db.installments[id]; ok {
		return inst, nil
	}
	return fee.Installment{}, fee.ErrInstallmentNotFound
}

func (repo *feeRepository) CreateSchedule(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.fees[f.ID]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	if stored = repo.withInstallments(stored); stored.IsScheduled() {
		return fee.Fee{}, fee.ErrAlreadyScheduled
	}

	insts := make([]fee.Installment, len(f.Installments))
	copy(insts, f.Installments)
	f, err := repo.updateFee(f)
	if err != nil {
		return fee.Fee{}, err
	}
	for i := range insts {
		insts[i].ID = repo.db.nextPK("installment")
		insts[i].FeeID = f.ID
		repo.db.installments[insts[i].ID] = insts[i]
	}
	f.Installments = insts
	return f, nil
}

func (repo *feeRepository) SaveAtomic(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// check everything before writing anything
	for _, inst := range f.Installments {
		if stored, ok := repo.db.installments[inst.ID]; !ok || stored.FeeID != f.ID {
			return fee.Fee{}, fee.ErrInstallmentNotFound
		}
	}

	insts := make([]fee.Installment, len(f.Installments))
	copy(insts, f.Installments)
	f, err := repo.updateFee(f)
	if err != nil {
		return fee.Fee{}, err
	}
	for _, inst := range insts {
		repo.db.installments[inst.ID] = inst
	}
	f.Installments = insts
	return f, nil
}
