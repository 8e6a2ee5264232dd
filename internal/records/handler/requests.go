package handler

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"userdir/internal/records/models"
	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/requestcontext"
)

// CreateRecordRequest is the body of POST /records. Email format is checked
// by the service after the duplicate check, so only presence and length are
// structural here.
type CreateRecordRequest struct {
	Email       string `json:"email" validate:"required,max=255"`
	FirstName   string `json:"firstName" validate:"required,min=2,max=64"`
	LastName    string `json:"lastName" validate:"required,min=2,max=64"`
	BirthDate   string `json:"birthDate" validate:"required,date,past"`
	Address     string `json:"address" validate:"omitempty,min=2,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,min=10,max=32"`
}

// ReplaceRecordRequest is the body of PUT /records/{id}. Email cannot be
// changed and is ignored if sent.
type ReplaceRecordRequest struct {
	FirstName   string `json:"firstName" validate:"required,min=2,max=64"`
	LastName    string `json:"lastName" validate:"required,min=2,max=64"`
	BirthDate   string `json:"birthDate" validate:"required,date,past"`
	Address     string `json:"address" validate:"omitempty,min=2,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,min=10,max=32"`
}

// PatchRecordRequest is the body of PATCH /records/{id}. A key that is
// missing leaves the field alone; an explicit null clears address and
// phoneNumber and is rejected for the other fields.
type PatchRecordRequest struct {
	FirstName   domain.Optional[string] `json:"firstName"`
	LastName    domain.Optional[string] `json:"lastName"`
	BirthDate   domain.Optional[string] `json:"birthDate"`
	Address     domain.Optional[string] `json:"address"`
	PhoneNumber domain.Optional[string] `json:"phoneNumber"`
}

// patchFields is the validator view of a PatchRecordRequest: present,
// non-null values only.
type patchFields struct {
	FirstName   *string `json:"firstName" validate:"omitnil,min=2,max=64"`
	LastName    *string `json:"lastName" validate:"omitnil,min=2,max=64"`
	BirthDate   *string `json:"birthDate" validate:"omitnil,date,past"`
	Address     *string `json:"address" validate:"omitnil,min=2,max=255"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitnil,min=10,max=32"`
}

// RequestValidator checks structural constraints on request bodies and
// reports failures per JSON field name.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidationCtx("past", func(ctx context.Context, fl validator.FieldLevel) bool {
		d, err := domain.ParseDate(fl.Field().String())
		if err != nil {
			// reported by the date tag
			return true
		}
		return d.Before(domain.DateOf(requestcontext.Now(ctx)))
	})
	return &RequestValidator{validate: v}
}

// Validate returns a validation_error carrying per-field messages, or nil.
func (rv *RequestValidator) Validate(ctx context.Context, req any) error {
	err := rv.validate.StructCtx(ctx, req)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request payload")
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = messageFor(fe)
	}
	return dErrors.WithFields(dErrors.CodeValidation, "request validation failed", fields)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "date":
		return fmt.Sprintf("%s must be a date in the pattern '%s'", fe.Field(), domain.DatePattern)
	case "past":
		return fmt.Sprintf("%s must be in the past", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func (req CreateRecordRequest) toModel() models.NewRecord {
	return models.NewRecord{
		Email:       strings.TrimSpace(req.Email),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		BirthDate:   domain.MustParseDate(req.BirthDate),
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	}
}

func (req ReplaceRecordRequest) toModel() models.Replacement {
	return models.Replacement{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		BirthDate:   domain.MustParseDate(req.BirthDate),
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	}
}

// nullViolations reports mandatory fields that were sent as null.
func (req PatchRecordRequest) nullViolations() map[string]string {
	fields := map[string]string{}
	if req.FirstName.IsNull() {
		fields["firstName"] = "firstName cannot be null"
	}
	if req.LastName.IsNull() {
		fields["lastName"] = "lastName cannot be null"
	}
	if req.BirthDate.IsNull() {
		fields["birthDate"] = "birthDate cannot be null"
	}
	return fields
}

func (req PatchRecordRequest) validationView() patchFields {
	return patchFields{
		FirstName:   presentValue(req.FirstName),
		LastName:    presentValue(req.LastName),
		BirthDate:   presentValue(req.BirthDate),
		Address:     presentValue(req.Address),
		PhoneNumber: presentValue(req.PhoneNumber),
	}
}

// toModel must only be called after validation has passed.
func (req PatchRecordRequest) toModel() models.Patch {
	patch := models.Patch{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	}
	if v, ok := req.BirthDate.Get(); ok {
		patch.BirthDate = domain.Some(domain.MustParseDate(v))
	}
	return patch
}

func presentValue(o domain.Optional[string]) *string {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}
