package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"userdir/internal/records/daterange"
	"userdir/internal/records/events"
	"userdir/internal/records/metrics"
	"userdir/internal/records/models"
	"userdir/internal/records/rules"
	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/platform/sentinel"
	"userdir/pkg/requestcontext"
)

// Store is the record persistence the service needs. Lookups that find
// nothing return sentinel.ErrNotFound; a write rejected by the email
// uniqueness constraint returns sentinel.ErrConflict.
type Store interface {
	FindByID(ctx context.Context, id domain.RecordID) (*models.Record, error)
	FindAll(ctx context.Context) ([]*models.Record, error)
	FindByBirthDateBetween(ctx context.Context, from, to domain.Date) ([]*models.Record, error)
	FindByBirthDateAfter(ctx context.Context, from domain.Date) ([]*models.Record, error)
	FindByBirthDateBefore(ctx context.Context, to domain.Date) ([]*models.Record, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, record *models.Record) (*models.Record, error)
	Delete(ctx context.Context, id domain.RecordID) error
}

// CacheInvalidator is implemented by stores that keep copies of records
// outside the transaction. The service drops the copy once a write has
// committed, so no reader can re-cache the pre-commit row after the drop.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id domain.RecordID) error
}

// EventPublisher receives lifecycle events after a use case commits.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service orchestrates record validation, merging and persistence.
type Service struct {
	store      Store
	tx         StoreTx
	minimumAge int
	logger     *slog.Logger
	publisher  EventPublisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTx replaces the default in-process lock with a real transaction
// boundary, e.g. a Postgres transaction.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service. minimumAge is in whole years.
func New(store Store, minimumAge int, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if minimumAge < 0 {
		return nil, errors.New("minimum age must not be negative")
	}
	s := &Service{
		store:      store,
		minimumAge: minimumAge,
		tracer:     otel.Tracer("userdir/internal/records/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewLockTx(defaultTxTimeout)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Get returns the record with id.
func (s *Service) Get(ctx context.Context, id domain.RecordID) (*models.Record, error) {
	ctx, done := s.begin(ctx, "get", attribute.Int64("record.id", int64(id)))
	rec, err := s.findExisting(ctx, id)
	done(err)
	return rec, err
}

// Create validates and stores a new record. Age is checked before email;
// the email check looks for duplicates before it looks at format.
func (s *Service) Create(ctx context.Context, in models.NewRecord) (*models.Record, error) {
	ctx, done := s.begin(ctx, "create")
	in.Email = strings.TrimSpace(in.Email)

	var created *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if in.BirthDate.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "birthDate is required")
		}
		if err := rules.ValidateAge(in.BirthDate, s.minimumAge, s.today(ctx)); err != nil {
			return err
		}
		if err := rules.ValidateEmail(ctx, in.Email, s.store.ExistsByEmail); err != nil {
			return err
		}
		rec, err := in.Build()
		if err != nil {
			return toValidation(err)
		}
		created, err = s.save(ctx, rec)
		return err
	})
	done(err)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "record_created", "record_id", created.ID)
	s.publish(ctx, events.RecordCreated, created.ID, created)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return created, nil
}

// Replace overwrites every mutable field of the record with id. The new
// birth date is always validated.
func (s *Service) Replace(ctx context.Context, id domain.RecordID, repl models.Replacement) (*models.Record, error) {
	ctx, done := s.begin(ctx, "replace", attribute.Int64("record.id", int64(id)))

	var updated *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.findExisting(ctx, id)
		if err != nil {
			return err
		}
		if repl.BirthDate.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "birthDate is required")
		}
		if err := rules.ValidateAge(repl.BirthDate, s.minimumAge, s.today(ctx)); err != nil {
			return err
		}
		next := existing.Replace(repl)
		updated, err = s.save(ctx, &next)
		return err
	})
	done(err)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.ID)
	s.logAudit(ctx, "record_replaced", "record_id", updated.ID)
	s.publish(ctx, events.RecordReplaced, updated.ID, updated)
	return updated, nil
}

// Patch merges the present fields of patch into the record with id. The
// merge is all-or-nothing: a rejected birth date leaves the record as it was.
// A patch with no present field returns the record without writing.
func (s *Service) Patch(ctx context.Context, id domain.RecordID, patch models.Patch) (*models.Record, error) {
	ctx, done := s.begin(ctx, "patch", attribute.Int64("record.id", int64(id)))

	var (
		updated *models.Record
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.findExisting(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = existing
			return nil
		}
		today := s.today(ctx)
		merged, err := existing.Merge(patch, func(birth domain.Date) error {
			return rules.ValidateAge(birth, s.minimumAge, today)
		})
		if err != nil {
			return toValidation(err)
		}
		updated, err = s.save(ctx, &merged)
		changed = err == nil
		return err
	})
	done(err)
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	s.invalidate(ctx, updated.ID)
	s.logAudit(ctx, "record_patched", "record_id", updated.ID)
	s.publish(ctx, events.RecordPatched, updated.ID, updated)
	return updated, nil
}

// Delete removes the record with id. A missing record is reported as
// false, not as an error.
func (s *Service) Delete(ctx context.Context, id domain.RecordID) (bool, error) {
	ctx, done := s.begin(ctx, "delete", attribute.Int64("record.id", int64(id)))

	deleted := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindByID(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return storeFailure(err, "failed to load record")
		}
		if err := s.store.Delete(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return storeFailure(err, "failed to delete record")
		}
		deleted = true
		return nil
	})
	done(err)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	s.invalidate(ctx, id)
	s.logAudit(ctx, "record_deleted", "record_id", id)
	s.publish(ctx, events.RecordDeleted, id, nil)
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	return true, nil
}

// ListByBirthDate returns records whose birth date falls in the optional,
// inclusive range [from, to]. Results keep the store's order.
func (s *Service) ListByBirthDate(ctx context.Context, from, to *string) ([]*models.Record, error) {
	ctx, done := s.begin(ctx, "list_by_birth_date")

	q, err := daterange.Resolve(from, to)
	if err != nil {
		done(err)
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("range.kind", q.Kind.String()))

	records, err := daterange.Dispatch[*models.Record](ctx, q, s.store)
	if err != nil {
		err = storeFailure(err, "failed to list records")
	}
	done(err)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.Record{}
	}
	return records, nil
}

func (s *Service) findExisting(ctx context.Context, id domain.RecordID) (*models.Record, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("record %d not found", id))
		}
		return nil, storeFailure(err, "failed to load record")
	}
	return rec, nil
}

func (s *Service) save(ctx context.Context, rec *models.Record) (*models.Record, error) {
	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(&rules.EmailError{Email: rec.Email, Kind: rules.EmailDuplicate},
				dErrors.CodeEmailTaken, fmt.Sprintf("the email address %s already exists", rec.Email))
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			// deleted by a concurrent use case after our lookup
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("record %d not found", rec.ID))
		}
		return nil, storeFailure(err, "failed to save record")
	}
	return saved, nil
}

// storeFailure classifies an unexpected store error. A store call cut short
// by the transaction deadline is a timeout, everything else is internal.
func storeFailure(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg+": transaction timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) today(ctx context.Context) domain.Date {
	return domain.DateOf(requestcontext.Now(ctx))
}

// begin starts a span for operation and returns a func that ends it and
// records duration and failure metrics.
func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "records."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		if s.metrics == nil {
			return
		}
		s.metrics.ObserveOperation(operation, start)
		if err != nil {
			s.metrics.IncrementFailure(operation, string(dErrors.CodeOf(err)))
		}
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if clientIP := requestcontext.ClientIP(ctx); clientIP != "" {
		attributes = append(attributes, "client_ip", clientIP)
	}
	if userAgent := requestcontext.UserAgent(ctx); userAgent != "" {
		attributes = append(attributes, "user_agent", userAgent)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

// invalidate runs after commit. The write has landed, so a failure is only
// logged; the entry then expires with its TTL.
func (s *Service) invalidate(ctx context.Context, id domain.RecordID) {
	inv, ok := s.store.(CacheInvalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached record",
			"record_id", id,
			"error", err,
		)
	}
}

func (s *Service) publish(ctx context.Context, typ events.Type, id domain.RecordID, rec *models.Record) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.Event{
		Type:       typ,
		RecordID:   id,
		OccurredAt: requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Record:     rec,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish record event",
			"event_type", string(typ),
			"record_id", id,
			"error", err,
		)
	}
}

// toValidation converts model invariant violations into validation errors
// for the API response.
func toValidation(err error) error {
	de, ok := dErrors.As(err)
	if !ok || de.Code != dErrors.CodeInvariantViolation {
		return err
	}
	return dErrors.WithFields(dErrors.CodeValidation, de.Message, de.Fields)
}
