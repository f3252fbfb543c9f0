package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestReservation(t *testing.T) *Reservation {
	t.Helper()
	res, err := NewReservation("stock-1", "order", "order-1", decimal.NewFromInt(5), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("NewReservation: %v", err)
	}
	return res
}

func TestNewReservation_Validation(t *testing.T) {
	future := time.Now().Add(time.Hour)

	if _, err := NewReservation("s", "order", "o", decimal.Zero, future); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero qty: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := NewReservation("s", "order", "o", decimal.NewFromInt(-1), future); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("negative qty: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := NewReservation("s", "order", "o", decimal.NewFromInt(1), time.Now().Add(-time.Minute)); !errors.Is(err, ErrExpiryInPast) {
		t.Errorf("past expiry: expected ErrExpiryInPast, got %v", err)
	}
}

func TestReservation_StartsPending(t *testing.T) {
	res := newTestReservation(t)
	if res.Status != ReservationPending {
		t.Errorf("expected pending, got %s", res.Status)
	}
	if res.Status.IsFinalized() {
		t.Error("pending must not be finalized")
	}
}

func TestReservation_TerminalTransitions(t *testing.T) {
	cases := []struct {
		name       string
		transition func(*Reservation) error
		want       ReservationStatus
	}{
		{"confirm", (*Reservation).Confirm, ReservationConfirmed},
		{"cancel", (*Reservation).Cancel, ReservationCancelled},
		{"expire", (*Reservation).Expire, ReservationExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newTestReservation(t)
			if err := tc.transition(res); err != nil {
				t.Fatalf("transition from pending: %v", err)
			}
			if res.Status != tc.want {
				t.Errorf("expected %s, got %s", tc.want, res.Status)
			}
			if !res.Status.IsFinalized() {
				t.Error("terminal status must report finalized")
			}

			// No second transition out of a terminal state.
			if err := res.Confirm(); !errors.Is(err, ErrReservationFinalized) {
				t.Errorf("confirm after %s: expected ErrReservationFinalized, got %v", tc.want, err)
			}
			if err := res.Cancel(); !errors.Is(err, ErrReservationFinalized) {
				t.Errorf("cancel after %s: expected ErrReservationFinalized, got %v", tc.want, err)
			}
			if err := res.Expire(); !errors.Is(err, ErrReservationFinalized) {
				t.Errorf("expire after %s: expected ErrReservationFinalized, got %v", tc.want, err)
			}
		})
	}
}

func TestReservation_IsOverdue(t *testing.T) {
	res := newTestReservation(t)
	res.ExpiresAt = time.Now().Add(-time.Minute)

	if !res.IsOverdue(time.Now()) {
		t.Error("pending past expiry: expected overdue")
	}

	if err := res.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.IsOverdue(time.Now()) {
		t.Error("confirmed reservation must never be overdue")
	}
}

func TestParseReservationStatus(t *testing.T) {
	cases := map[string]ReservationStatus{
		"pending":   ReservationPending,
		"active":    ReservationPending,
		"Confirmed": ReservationConfirmed,
		"completed": ReservationConfirmed,
		"cancelled": ReservationCancelled,
		"canceled":  ReservationCancelled,
		"expired":   ReservationExpired,
	}
	for in, want := range cases {
		got, err := ParseReservationStatus(in)
		if err != nil {
			t.Errorf("ParseReservationStatus(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseReservationStatus(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseReservationStatus("held"); !errors.Is(err, ErrInvalidReservationStatus) {
		t.Errorf("expected ErrInvalidReservationStatus, got %v", err)
	}
}
