package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"userdir/internal/records/handler/mocks"
	"userdir/internal/records/models"
	"userdir/internal/records/rules"
	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/testutil"
)

// =============================================================================
// Records Handler Test Suite
// =============================================================================
// The handler owns decoding, structural validation (422), id parsing and
// the mapping of domain codes to statuses. Business rules are mocked.

type RecordsHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestRecordsHandlerSuite(t *testing.T) {
	suite.Run(t, new(RecordsHandlerSuite))
}

func (s *RecordsHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, nil).Register(s.router)
}

func (s *RecordsHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RecordsHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func sampleRecord() *models.Record {
	return &models.Record{
		ID:        7,
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		BirthDate: domain.MustParseDate("1990-12-10"),
	}
}

func validCreateBody() map[string]any {
	return map[string]any{
		"email":     "ada@example.com",
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"birthDate": "1990-12-10",
	}
}

// =============================================================================
// POST /records
// =============================================================================

func (s *RecordsHandlerSuite) TestCreate() {
	s.Run("returns 201 with the stored record", func() {
		s.service.EXPECT().Create(gomock.Any(), models.NewRecord{
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
			BirthDate: domain.MustParseDate("1990-12-10"),
		}).Return(sampleRecord(), nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", validCreateBody()))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.Equal("/records/7", rr.Header().Get("Location"))
		rec := testutil.UnmarshalResponse[models.Record](s.T(), rr)
		s.Equal(domain.RecordID(7), rec.ID)
		s.Equal("1990-12-10", rec.BirthDate.String())
	})

	s.Run("malformed json is 400", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/records", `{"email":`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing and short fields are 422 with field messages", func() {
		body := validCreateBody()
		delete(body, "email")
		body["firstName"] = "A"
		body["phoneNumber"] = "123"

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", body))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Contains(resp.Errors, "email")
		s.Contains(resp.Errors, "firstName")
		s.Contains(resp.Errors, "phoneNumber")
		s.NotContains(resp.Errors, "lastName")
	})

	s.Run("future birth date is 422", func() {
		body := validCreateBody()
		body["birthDate"] = "2999-01-01"

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", body))

		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		testutil.AssertFieldError(s.T(), rr, "birthDate")
	})

	s.Run("unparseable birth date is 422", func() {
		body := validCreateBody()
		body["birthDate"] = "10/12/1990"

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", body))

		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Contains(resp.Errors["birthDate"], "yyyy-MM-dd")
	})

	s.Run("zero birth date is a field error, not a missing one", func() {
		body := validCreateBody()
		body["birthDate"] = "0001-01-01"

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", body))

		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Contains(resp.Errors["birthDate"], "yyyy-MM-dd")
	})

	s.Run("age restriction is 400", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.Wrap(&rules.AgeError{Age: 17, Minimum: 18}, dErrors.CodeAgeRestricted, "minimum age is 18 years"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", validCreateBody()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "age_restricted")
	})

	s.Run("duplicate email is 400", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.New(dErrors.CodeEmailTaken, "the email address ada@example.com already exists"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", validCreateBody()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "email_taken")
	})

	s.Run("internal failure hides the description", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to save record"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/records", validCreateBody()))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
		s.NotContains(rr.Body.String(), "connection refused")
	})
}

// =============================================================================
// GET /records/{id}
// =============================================================================

func (s *RecordsHandlerSuite) TestGet() {
	s.Run("returns the record", func() {
		s.service.EXPECT().Get(gomock.Any(), domain.RecordID(7)).Return(sampleRecord(), nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/records/7"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "email", "ada@example.com")
		testutil.AssertJSONContains(s.T(), rr, "firstName", "Ada")
	})

	s.Run("non numeric id is 400", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/records/abc"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("missing record is 404", func() {
		s.service.EXPECT().Get(gomock.Any(), domain.RecordID(99)).Return(nil, dErrors.New(dErrors.CodeNotFound, "record 99 not found"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/records/99"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

// =============================================================================
// PUT /records/{id}
// =============================================================================

func (s *RecordsHandlerSuite) TestReplace() {
	s.Run("replaces and returns the record", func() {
		s.service.EXPECT().Replace(gomock.Any(), domain.RecordID(7), models.Replacement{
			FirstName: "Augusta",
			LastName:  "King",
			BirthDate: domain.MustParseDate("1991-01-01"),
			Address:   "Ockham Park",
		}).Return(sampleRecord(), nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, "/records/7", map[string]any{
			"email":     "ignored@example.com",
			"firstName": "Augusta",
			"lastName":  "King",
			"birthDate": "1991-01-01",
			"address":   "Ockham Park",
		}))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("missing required fields are 422", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, "/records/7", map[string]any{
			"firstName": "Augusta",
		}))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		testutil.AssertFieldError(s.T(), rr, "lastName")
		testutil.AssertFieldError(s.T(), rr, "birthDate")
	})
}

// =============================================================================
// PATCH /records/{id}
// =============================================================================

func (s *RecordsHandlerSuite) TestPatch() {
	s.Run("passes presence through to the service", func() {
		s.service.EXPECT().Patch(gomock.Any(), domain.RecordID(7), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.RecordID, p models.Patch) (*models.Record, error) {
				v, ok := p.FirstName.Get()
				s.True(ok)
				s.Equal("Augusta", v)
				s.False(p.LastName.Present())
				s.False(p.BirthDate.Present())
				s.True(p.Address.IsNull())
				s.False(p.PhoneNumber.Present())
				return sampleRecord(), nil
			})

		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPatch, "/records/7",
			`{"firstName":"Augusta","address":null}`))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("birth date is parsed into the patch", func() {
		s.service.EXPECT().Patch(gomock.Any(), domain.RecordID(7), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.RecordID, p models.Patch) (*models.Record, error) {
				v, ok := p.BirthDate.Get()
				s.True(ok)
				s.Equal(domain.MustParseDate("1985-03-04"), v)
				return sampleRecord(), nil
			})

		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPatch, "/records/7", `{"birthDate":"1985-03-04"}`))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("null mandatory field is 422", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPatch, "/records/7", `{"lastName":null}`))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		testutil.AssertFieldError(s.T(), rr, "lastName")
	})

	s.Run("present fields are length checked", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPatch, "/records/7", `{"phoneNumber":"12"}`))

		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		testutil.AssertFieldError(s.T(), rr, "phoneNumber")
	})

	s.Run("age restriction from merge is 400", func() {
		s.service.EXPECT().Patch(gomock.Any(), domain.RecordID(7), gomock.Any()).Return(nil,
			dErrors.New(dErrors.CodeAgeRestricted, "minimum age is 18 years"))

		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPatch, "/records/7", `{"birthDate":"2015-01-01"}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "age_restricted")
	})
}

// =============================================================================
// DELETE /records/{id}
// =============================================================================

func (s *RecordsHandlerSuite) TestDelete() {
	s.Run("existing record is 204", func() {
		s.service.EXPECT().Delete(gomock.Any(), domain.RecordID(7)).Return(true, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/records/7"))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
		s.Empty(rr.Body.String())
	})

	s.Run("missing record is 404", func() {
		s.service.EXPECT().Delete(gomock.Any(), domain.RecordID(8)).Return(false, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/records/8"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

// =============================================================================
// GET /records/range
// =============================================================================

func (s *RecordsHandlerSuite) TestRange() {
	s.Run("absent parameters are passed as nil", func() {
		s.service.EXPECT().ListByBirthDate(gomock.Any(), gomock.Nil(), gomock.Nil()).Return([]*models.Record{}, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/records/range"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`[]`, rr.Body.String())
	})

	s.Run("present parameters are passed through", func() {
		s.service.EXPECT().ListByBirthDate(gomock.Any(), gomock.Any(), gomock.Nil()).DoAndReturn(
			func(_ context.Context, from, _ *string) ([]*models.Record, error) {
				s.Require().NotNil(from)
				s.Equal("1990-01-01", *from)
				return []*models.Record{sampleRecord()}, nil
			})

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/records/range?startDate=1990-01-01"))
		testutil.AssertStatusOK(s.T(), rr)
		recs := testutil.UnmarshalResponse[[]models.Record](s.T(), rr)
		s.Len(*recs, 1)
	})

	s.Run("invalid date is 400 naming value and pattern", func() {
		s.service.EXPECT().ListByBirthDate(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil,
			dErrors.New(dErrors.CodeInvalidDate, "date 2020-13-40 is invalid, you should use pattern 'yyyy-MM-dd'"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/records/range?startDate=2020-13-40"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_date")
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Contains(resp.Description, "2020-13-40")
		s.Contains(resp.Description, "yyyy-MM-dd")
	})
}
