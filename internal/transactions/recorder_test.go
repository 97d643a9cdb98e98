package transactions

import (
	"context"
	"errors"
	"testing"
)

func TestMarkStatusRejectsInvalidTransitions(t *testing.T) {
	// Validation happens before any query, so no pool is needed.
	r := NewRecorder(nil)

	for _, status := range []string{StatusPending, "refunded", "", "COMPLETED"} {
		err := r.MarkStatus(context.Background(), 1, status)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("MarkStatus(%q) err = %v, want ErrInvalidTransition", status, err)
		}
	}
}
