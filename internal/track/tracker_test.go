package track

import (
	"context"
	"testing"

	"feederpool/internal/storage"
)

func TestTrackerRunRejectsMissingDependencies(t *testing.T) {
	sink := storage.NewJsonlStorage(t.TempDir())

	if err := NewTracker(Config{Schedule: "* * * * * *"}, nil, sink, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error without chain client")
	}
}
