package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := Wrap(CodeSlotAlreadyBooked, "lost the race", errors.New("duplicate key"))
	wrapped := fmt.Errorf("create booking: %w", err)

	if !errors.Is(wrapped, ErrSlotAlreadyBooked) {
		t.Fatalf("expected errors.Is to match SlotAlreadyBooked")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("unexpected match with NotFound")
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, ""},
		{ErrInvalidToken, CodeInvalidToken},
		{fmt.Errorf("x: %w", ErrConflict), CodeConflict},
		{context.DeadlineExceeded, CodeUpstreamUnavailable},
		{errors.New("boom"), CodeInternal},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.want {
			t.Fatalf("CodeOf(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestHTTPStatus_TokenMismatchLooksLikeNotFound(t *testing.T) {
	if HTTPStatus(CodeInvalidToken) != http.StatusNotFound {
		t.Fatalf("invalid token must render as 404")
	}
	if PublicCode(CodeInvalidToken) != CodeNotFound {
		t.Fatalf("invalid token must render as NOT_FOUND")
	}
	if HTTPStatus(CodeSlotAlreadyBooked) != http.StatusConflict {
		t.Fatalf("slot already booked must render as 409")
	}
	if HTTPStatus(CodeUpstreamUnavailable) != http.StatusServiceUnavailable {
		t.Fatalf("upstream unavailable must render as 503")
	}
}
