package storage

import (
	"context"

	"feederpool/internal/model"
)

// Storage defines the sinks the simulator and tracker write into.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.PoolEvent) error
	PutPositionBatch(ctx context.Context, positions []model.Position) error
	PutValueSampleBatch(ctx context.Context, samples []model.ValueSample) error
}
