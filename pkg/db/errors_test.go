package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "ux_foo", false},
		{"postgres duplicate", errors.New(`duplicate key value violates unique constraint "ux_foo"`), "ux_foo", true},
		{"constraint name match", errors.New(`constraint ux_webhook_events_webhook_shop violated`), "ux_webhook_events_webhook_shop", true},
		{"sqlite duplicate", errors.New("UNIQUE constraint failed: webhook_events.webhook_id"), "", true},
		{"unrelated", errors.New("connection refused"), "ux_foo", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v, %q) = %v, want %v", tc.err, tc.constraint, got, tc.want)
			}
		})
	}
}
