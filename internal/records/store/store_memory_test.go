package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"userdir/internal/records/models"
	"userdir/pkg/domain"
	"userdir/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) save(email, birth string) *models.Record {
	rec, err := s.store.Save(s.ctx, &models.Record{
		Email:     email,
		FirstName: "First",
		LastName:  "Last",
		BirthDate: domain.MustParseDate(birth),
	})
	s.Require().NoError(err)
	return rec
}

func (s *InMemoryStoreSuite) ids(recs []*models.Record) []domain.RecordID {
	out := make([]domain.RecordID, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func (s *InMemoryStoreSuite) TestSaveAssignsMonotonicIDs() {
	a := s.save("a@example.com", "1990-01-01")
	b := s.save("b@example.com", "1990-01-01")
	s.Equal(domain.RecordID(1), a.ID)
	s.Equal(domain.RecordID(2), b.ID)

	s.Require().NoError(s.store.Delete(s.ctx, b.ID))
	c := s.save("c@example.com", "1990-01-01")
	s.Equal(domain.RecordID(3), c.ID, "ids are never reused")
}

func (s *InMemoryStoreSuite) TestSaveReturnsCopy() {
	rec := s.save("a@example.com", "1990-01-01")
	rec.FirstName = "mutated"

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("First", found.FirstName)
}

func (s *InMemoryStoreSuite) TestSaveUpdatesExisting() {
	rec := s.save("a@example.com", "1990-01-01")
	rec.LastName = "Updated"
	_, err := s.store.Save(s.ctx, rec)
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("Updated", found.LastName)

	exists, err := s.store.ExistsByEmail(s.ctx, "a@example.com")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *InMemoryStoreSuite) TestSaveUnknownIDIsNotFound() {
	_, err := s.store.Save(s.ctx, &models.Record{ID: 42, Email: "x@example.com"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDuplicateEmailConflicts() {
	s.save("a@example.com", "1990-01-01")
	_, err := s.store.Save(s.ctx, &models.Record{Email: "a@example.com", BirthDate: domain.MustParseDate("1990-01-01")})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestConcurrentCreatesWithSameEmail() {
	const goroutines = 50
	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Save(s.ctx, &models.Record{Email: "race@example.com", BirthDate: domain.MustParseDate("1990-01-01")})
			if err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
}

func (s *InMemoryStoreSuite) TestDeleteReleasesEmail() {
	rec := s.save("a@example.com", "1990-01-01")
	s.Require().NoError(s.store.Delete(s.ctx, rec.ID))

	_, err := s.store.FindByID(s.ctx, rec.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, rec.ID), sentinel.ErrNotFound)

	exists, err := s.store.ExistsByEmail(s.ctx, "a@example.com")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *InMemoryStoreSuite) TestBirthDateRangesAreInclusive() {
	early := s.save("early@example.com", "1980-05-01")
	mid := s.save("mid@example.com", "1990-05-01")
	late := s.save("late@example.com", "2000-05-01")

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.RecordID{early.ID, mid.ID, late.ID}, s.ids(all))

	between, err := s.store.FindByBirthDateBetween(s.ctx, domain.MustParseDate("1990-05-01"), domain.MustParseDate("2000-05-01"))
	s.Require().NoError(err)
	s.Equal([]domain.RecordID{mid.ID, late.ID}, s.ids(between))

	after, err := s.store.FindByBirthDateAfter(s.ctx, domain.MustParseDate("1990-05-01"))
	s.Require().NoError(err)
	s.Equal([]domain.RecordID{mid.ID, late.ID}, s.ids(after))

	before, err := s.store.FindByBirthDateBefore(s.ctx, domain.MustParseDate("1990-05-01"))
	s.Require().NoError(err)
	s.Equal([]domain.RecordID{early.ID, mid.ID}, s.ids(before))

	none, err := s.store.FindByBirthDateBetween(s.ctx, domain.MustParseDate("1970-01-01"), domain.MustParseDate("1970-12-31"))
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}
