package orders

import (
	"errors"
	"testing"
)

var allStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing,
	StatusShipped, StatusDelivered, StatusCancelled,
}

func TestTransitionLegality(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusPreparing}: true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusPreparing, StatusShipped}:   true,
		{StatusShipped, StatusDelivered}:   true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := legal[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range allStatuses {
		want := s == StatusDelivered || s == StatusCancelled
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
	if Status("bogus").Terminal() {
		t.Error("unknown status must not be terminal")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"Confirmed", StatusConfirmed, false},
		{" shipped ", StatusShipped, false},
		{"ready", StatusShipped, false}, // pickup alias
		{"READY", StatusShipped, false},
		{"delivered", StatusDelivered, false},
		{"completed", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if tt.wantErr {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("ParseStatus(%q): want ValidationError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusShipped.Label(); got != "Shipped / Ready for Pickup" {
		t.Errorf("shipped label = %q", got)
	}
	if got := Status("weird").Label(); got != "weird" {
		t.Errorf("unknown label = %q", got)
	}
}
