package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("email is invalid"), http.StatusBadRequest},
		{"conflict", Conflict("application already exists", nil), http.StatusConflict},
		{"not found", NotFound("payment order not found"), http.StatusNotFound},
		{"auth", Auth("token exchange failed", nil), http.StatusInternalServerError},
		{"gateway", Gateway("PAYMENT_DECLINED", "order rejected", nil), http.StatusInternalServerError},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("initiate: %w", Conflict("duplicate order", nil)), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestValidationCollectsAllViolations(t *testing.T) {
	err := Validation("email is invalid", "phone is invalid", "statement too short")
	if len(err.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %d", len(err.Violations))
	}
	msg := err.Error()
	for _, v := range err.Violations {
		if !strings.Contains(msg, v) {
			t.Errorf("Error() = %q, missing violation %q", msg, v)
		}
	}
}

func TestGatewayCarriesUpstreamCode(t *testing.T) {
	err := Gateway("INVALID_MERCHANT", "merchant not onboarded", nil)
	if err.UpstreamCode != "INVALID_MERCHANT" {
		t.Fatalf("unexpected upstream code %q", err.UpstreamCode)
	}
	if !strings.Contains(err.Error(), "INVALID_MERCHANT") {
		t.Errorf("Error() should mention the upstream code, got %q", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := Auth("token exchange failed", inner)
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to reach the wrapped error")
	}
}
