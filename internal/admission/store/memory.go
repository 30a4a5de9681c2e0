package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"reliefpass/internal/admission/models"
	capacitymodels "reliefpass/internal/capacity/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

type participantKey struct {
	program     id.ProgramID
	participant id.ParticipantID
	kind        id.Kind
}

// InMemory keeps registrations in a map with a secondary index enforcing one
// registration per (program, participant, kind).
type InMemory struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]models.Registration
	byParticipant map[participantKey]id.RegistrationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		registrations: make(map[id.RegistrationID]models.Registration),
		byParticipant: make(map[participantKey]id.RegistrationID),
	}
}

func keyOf(r *models.Registration) participantKey {
	return participantKey{r.ProgramID, r.ParticipantID, r.Kind}
}

func (s *InMemory) Create(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byParticipant[keyOf(r)]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.registrations[r.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.registrations[r.ID] = *r
	s.byParticipant[keyOf(r)] = r.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemory) FindByParticipant(_ context.Context, programID id.ProgramID, participantID id.ParticipantID, kind id.Kind) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byParticipant[participantKey{programID, participantID, kind}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	r := s.registrations[regID]
	return &r, nil
}

// ListByProgram returns the program's registrations in admission order,
// optionally restricted to statuses.
func (s *InMemory) ListByProgram(_ context.Context, programID id.ProgramID, statuses ...models.Status) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.registrations {
		if r.ProgramID != programID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, r.Status) {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if !a.AdmittedAt.Equal(b.AdmittedAt) {
			return a.AdmittedAt.Before(b.AdmittedAt)
		}
		return a.Slot < b.Slot
	})
	return out, nil
}

// ListByParticipant returns a participant's registrations across programs,
// most recent admission first.
func (s *InMemory) ListByParticipant(_ context.Context, participantID id.ParticipantID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.registrations {
		if r.ParticipantID == participantID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.AdmittedAt.Equal(b.AdmittedAt) {
			return a.AdmittedAt.After(b.AdmittedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (s *InMemory) ListOccupants(_ context.Context, programID id.ProgramID, kind id.Kind) ([]capacitymodels.Occupant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []capacitymodels.Occupant
	for _, r := range s.registrations {
		if r.ProgramID == programID && r.Kind == kind && r.Status.Occupies() {
			out = append(out, r.Occupant())
		}
	}
	capacitymodels.SortByAdmission(out)
	return out, nil
}

// Transition moves a registration to next if its current status is one of
// from. It returns sentinel.ErrInvalidState when the status moved on.
func (s *InMemory) Transition(_ context.Context, registrationID id.RegistrationID, from []models.Status, next models.Status, now time.Time) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !slices.Contains(from, r.Status) {
		return nil, sentinel.ErrInvalidState
	}
	r.Status = next
	r.UpdatedAt = now
	if next == models.StatusCanceled {
		at := now
		r.CanceledAt = &at
	}
	s.registrations[registrationID] = r
	return &r, nil
}

func (s *InMemory) Delete(_ context.Context, registrationID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.registrations, registrationID)
	delete(s.byParticipant, keyOf(&r))
	return nil
}
