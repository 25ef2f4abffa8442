package store

import (
	"context"
	"testing"
)

// Offers without an id fall back to the empty string; every driver must
// persist it so the offer is broadcast once and then stays seen.
func TestDriversPersistEmptyID(t *testing.T) {
	drivers := map[string]func(t *testing.T) Store{
		"file":   newFileStore,
		"sqlite": newSQLiteStore,
	}
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if err := s.SaveState(ctx, State{SeenOfferIDs: []string{"", "1"}, FirstRun: false}); err != nil {
				t.Fatalf("SaveState: %v", err)
			}
			st, err := s.LoadState(ctx)
			if err != nil {
				t.Fatalf("LoadState: %v", err)
			}
			if !st.Seen("") {
				t.Fatalf("empty id not persisted: %q", st.SeenOfferIDs)
			}
			if !st.Seen("1") {
				t.Fatalf("missing id %q in %q", "1", st.SeenOfferIDs)
			}

			// Saving the same set again must not duplicate.
			if err := s.SaveState(ctx, State{SeenOfferIDs: []string{"", "1"}, FirstRun: false}); err != nil {
				t.Fatalf("SaveState again: %v", err)
			}
			st, err = s.LoadState(ctx)
			if err != nil {
				t.Fatalf("LoadState: %v", err)
			}
			if len(st.SeenOfferIDs) != 2 {
				t.Fatalf("expected 2 ids, got %q", st.SeenOfferIDs)
			}
		})
	}
}
