package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

// InMemory keeps vouchers with token and registration indexes. Complete and
// Cancel check the status under the write lock, the in-memory counterpart of
// the conditional UPDATE.
type InMemory struct {
	mu             sync.RWMutex
	vouchers       map[id.VoucherID]models.Voucher
	byToken        map[string]id.VoucherID
	byRegistration map[id.RegistrationID]id.VoucherID
}

func NewInMemory() *InMemory {
	return &InMemory{
		vouchers:       make(map[id.VoucherID]models.Voucher),
		byToken:        make(map[string]id.VoucherID),
		byRegistration: make(map[id.RegistrationID]id.VoucherID),
	}
}

func (s *InMemory) Create(_ context.Context, v *models.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byRegistration[v.RegistrationID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, taken := s.byToken[v.Token]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.vouchers[v.ID] = *v
	s.byToken[v.Token] = v.ID
	s.byRegistration[v.RegistrationID] = v.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, voucherID id.VoucherID) (*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(voucherID)
}

func (s *InMemory) FindByToken(_ context.Context, token string) (*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voucherID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(voucherID)
}

func (s *InMemory) FindByRegistration(_ context.Context, registrationID id.RegistrationID) (*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voucherID, ok := s.byRegistration[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(voucherID)
}

func (s *InMemory) get(voucherID id.VoucherID) (*models.Voucher, error) {
	v, ok := s.vouchers[voucherID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

func (s *InMemory) Complete(_ context.Context, voucherID id.VoucherID, staffID id.StaffID, at time.Time) (*models.Voucher, error) {
	return s.leavePending(voucherID, func(v *models.Voucher) {
		v.Status = models.StatusCompleted
		redeemedAt, by := at, staffID
		v.RedeemedAt = &redeemedAt
		v.RedeemedBy = &by
	})
}

func (s *InMemory) Cancel(_ context.Context, voucherID id.VoucherID, at time.Time) (*models.Voucher, error) {
	return s.leavePending(voucherID, func(v *models.Voucher) {
		v.Status = models.StatusCancelled
		cancelledAt := at
		v.CancelledAt = &cancelledAt
	})
}

func (s *InMemory) leavePending(voucherID id.VoucherID, apply func(*models.Voucher)) (*models.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[voucherID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if v.Status != models.StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	apply(&v)
	s.vouchers[voucherID] = v
	return &v, nil
}

// ListExpired returns up to limit PENDING vouchers whose date is before
// cutoff and that sort after the cursor, oldest date first.
func (s *InMemory) ListExpired(_ context.Context, cutoff time.Time, after models.ExpiryCursor, limit int) ([]*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Voucher
	for _, v := range s.vouchers {
		if v.Expired(cutoff) && after.Precedes(&v) {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ScheduledRedemptionDate.Equal(b.ScheduledRedemptionDate) {
			return a.ScheduledRedemptionDate.Before(b.ScheduledRedemptionDate)
		}
		return a.ID.String() < b.ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) Stats(_ context.Context, programID id.ProgramID) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Stats{}
	for _, v := range s.vouchers {
		if v.ProgramID != programID {
			continue
		}
		stats.Total++
		switch v.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	stats.ComputeRate()
	return stats, nil
}

// DeleteByRegistration removes the registration's voucher, if any.
func (s *InMemory) DeleteByRegistration(_ context.Context, registrationID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	voucherID, ok := s.byRegistration[registrationID]
	if !ok {
		return nil
	}
	v := s.vouchers[voucherID]
	delete(s.vouchers, voucherID)
	delete(s.byToken, v.Token)
	delete(s.byRegistration, registrationID)
	return nil
}

// ScanInMemory is the append-only scan log. One record per voucher.
type ScanInMemory struct {
	mu        sync.RWMutex
	byVoucher map[id.VoucherID]models.ScanRecord
}

func NewScanInMemory() *ScanInMemory {
	return &ScanInMemory{byVoucher: make(map[id.VoucherID]models.ScanRecord)}
}

func (s *ScanInMemory) Create(_ context.Context, record *models.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byVoucher[record.VoucherID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.byVoucher[record.VoucherID] = *record
	return nil
}

func (s *ScanInMemory) FindByVoucher(_ context.Context, voucherID id.VoucherID) (*models.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byVoucher[voucherID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *ScanInMemory) DeleteByVoucher(_ context.Context, voucherID id.VoucherID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byVoucher, voucherID)
	return nil
}
