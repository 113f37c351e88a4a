package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsBusiness(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found wrapped", fmt.Errorf("event evt_1: %w", ErrorNotFound), true},
		{"conflict", ErrorConflict, true},
		{"capacity", fmt.Errorf("x: %w", ErrorCapacity), true},
		{"profile incomplete", ErrorProfileIncomplete, true},
		{"verification", fmt.Errorf("invalid code: %w", ErrorVerification), true},
		{"internal", ErrorInternal, false},
		{"driver error", errors.New("db error: connection refused"), false},
		{"nil", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsBusiness(tc.err); got != tc.want {
				t.Fatalf("IsBusiness(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
