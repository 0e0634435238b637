package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeShippingUnavailable, status: http.StatusBadGateway, publicMsg: "no shipping rate available", retryable: true, detailsOK: true},
		{code: CodeInvalidShippingRef, status: http.StatusBadRequest, publicMsg: "shipping reference is stale or mismatched", detailsOK: true},
		{code: CodePaymentGateway, status: http.StatusInternalServerError, publicMsg: "payment session could not be created", retryable: true},
		{code: CodeSignature, status: http.StatusBadRequest, publicMsg: "webhook signature verification failed"},
		{code: CodeMissingEmail, status: http.StatusUnprocessableEntity, publicMsg: "no customer email present on session", detailsOK: true},
		{code: CodeMissingShipping, status: http.StatusUnprocessableEntity, publicMsg: "no shipping address present on session", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing cart")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing cart" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "items"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeShippingUnavailable, cause, "rate fetch")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeShippingUnavailable {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeSignature, "bad signature")
	if got := As(err); got == nil || got.Code() != CodeSignature {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "orders_stripe_session_id_key"}
	if !IsUniqueViolation(dup) {
		t.Fatalf("expected 23505 to be a unique violation")
	}
	if IsUniqueViolation(stdErrors.New("plain")) {
		t.Fatalf("plain error should not match")
	}
	other := &pgconn.PgError{Code: "23503"}
	if IsUniqueViolation(other) {
		t.Fatalf("fk violation should not match")
	}
	// sqlite (the test driver) has no error code, only a message.
	sqliteDup := fmt.Errorf("inserting order: %w",
		stdErrors.New("UNIQUE constraint failed: orders.stripe_session_id"))
	if !IsUniqueViolation(sqliteDup) {
		t.Fatalf("expected sqlite unique message to match")
	}
	if IsUniqueViolation(nil) {
		t.Fatalf("nil should not match")
	}
}
