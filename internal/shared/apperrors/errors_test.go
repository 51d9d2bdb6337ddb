package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("cancel: %w", InvalidState("Reservation cannot be cancelled"))

	if !errors.Is(err, ErrInvalidState) {
		t.Error("wrapped InvalidState should match the sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("InvalidState should not match NotFound")
	}
	if !errors.Is(err, InvalidState("Reservation cannot be cancelled")) {
		t.Error("same kind and message should match")
	}
	if errors.Is(err, InvalidState("something else")) {
		t.Error("different message should not match")
	}
	if KindOf(err) != KindInvalidState || KindOf(errors.New("boom")) != KindInternal {
		t.Error("KindOf misclassified")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := Upstream("Payment gateway unavailable", cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if err.Error() != "UPSTREAM_ERROR: Payment gateway unavailable: dial tcp: i/o timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindVerification, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInvalidState, http.StatusUnprocessableEntity},
		{KindExpired, http.StatusGone},
		{KindUpstream, http.StatusBadGateway},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestIsConstraintConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "tickets_reservation_id_key"}, true},
		{"exclusion", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01", ConstraintName: "reservations_no_overlap"}), true},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false},
		{"plain", errors.New("duplicate"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConstraintConflict(tt.err); got != tt.want {
				t.Errorf("IsConstraintConflict = %v, want %v", got, tt.want)
			}
		})
	}
	if name := ConstraintName(tests[1].err); name != "reservations_no_overlap" {
		t.Errorf("ConstraintName = %q", name)
	}
}

func TestFromBinding(t *testing.T) {
	type request struct {
		Email  string `validate:"required,email"`
		Period string `validate:"oneof=30 all"`
	}
	verr := validator.New().Struct(request{Email: "nope", Period: "7"})

	err := FromBinding(verr)
	if err.Kind != KindValidation || err.Message != "Validation failed" {
		t.Fatalf("err = %v", err)
	}
	fields, ok := err.Details.([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("details = %#v", err.Details)
	}
	if fields[0] != (FieldError{Field: "email", Message: "must be a valid email address"}) {
		t.Errorf("fields[0] = %+v", fields[0])
	}
	if fields[1] != (FieldError{Field: "period", Message: "must be one of: 30 all"}) {
		t.Errorf("fields[1] = %+v", fields[1])
	}

	malformed := FromBinding(errors.New("unexpected EOF"))
	if malformed.Message != "Invalid request body" {
		t.Errorf("malformed = %v", malformed)
	}
}
