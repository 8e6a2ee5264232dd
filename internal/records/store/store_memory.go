package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"userdir/internal/records/models"
	"userdir/pkg/domain"
	"userdir/pkg/platform/sentinel"
)

// InMemoryStore keeps records in a map keyed by id. It enforces email
// uniqueness under its own lock so concurrent creates cannot both succeed.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.RecordID]models.Record
	emails  map[string]domain.RecordID
	nextID  domain.RecordID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[domain.RecordID]models.Record),
		emails:  make(map[string]domain.RecordID),
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (s *InMemoryStore) FindAll(_ context.Context) ([]*models.Record, error) {
	return s.filter(func(models.Record) bool { return true }), nil
}

func (s *InMemoryStore) FindByBirthDateBetween(_ context.Context, from, to domain.Date) ([]*models.Record, error) {
	return s.filter(func(r models.Record) bool {
		return !r.BirthDate.Before(from) && !r.BirthDate.After(to)
	}), nil
}

func (s *InMemoryStore) FindByBirthDateAfter(_ context.Context, from domain.Date) ([]*models.Record, error) {
	return s.filter(func(r models.Record) bool { return !r.BirthDate.Before(from) }), nil
}

func (s *InMemoryStore) FindByBirthDateBefore(_ context.Context, to domain.Date) ([]*models.Record, error) {
	return s.filter(func(r models.Record) bool { return !r.BirthDate.After(to) }), nil
}

func (s *InMemoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.emails[emailKey(email)]
	return ok, nil
}

// Save inserts a record with a zero id and updates an existing one
// otherwise. Updating an id that does not exist returns sentinel.ErrNotFound.
func (s *InMemoryStore) Save(_ context.Context, record *models.Record) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(record.Email)
	if holder, taken := s.emails[key]; taken && holder != record.ID {
		return nil, sentinel.ErrConflict
	}

	rec := *record
	if rec.ID.IsZero() {
		s.nextID++
		rec.ID = s.nextID
	} else {
		prev, ok := s.records[rec.ID]
		if !ok {
			return nil, sentinel.ErrNotFound
		}
		delete(s.emails, emailKey(prev.Email))
	}
	s.records[rec.ID] = rec
	s.emails[key] = rec.ID
	return &rec, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	delete(s.emails, emailKey(rec.Email))
	return nil
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(_ context.Context) error {
	return nil
}

// filter returns copies of matching records ordered by id.
func (s *InMemoryStore) filter(match func(models.Record) bool) []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		if match(rec) {
			r := rec
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// emailKey normalizes an address the same way the service does before
// lookups, so the backstop and ExistsByEmail agree.
func emailKey(email string) string {
	return strings.TrimSpace(email)
}
