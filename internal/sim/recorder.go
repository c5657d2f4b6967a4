package sim

import (
	"time"

	"github.com/google/uuid"

	"feederpool/internal/model"
)

// Recorder buffers pool events and stamps each with an ID, a sequence
// number, and the simulator clock. The runner drains it in batches.
type Recorder struct {
	clock func() time.Time
	seq   uint64
	buf   []model.PoolEvent
}

func NewRecorder(clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{clock: clock}
}

// Emit implements pool.EventSink.
func (r *Recorder) Emit(event model.PoolEvent) {
	r.seq++
	event.ID = uuid.NewString()
	event.Seq = r.seq
	event.Timestamp = uint64(r.clock().Unix())
	r.buf = append(r.buf, event)
}

// Pending returns the number of undrained events.
func (r *Recorder) Pending() int {
	return len(r.buf)
}

// Drain returns the buffered events and resets the buffer.
func (r *Recorder) Drain() []model.PoolEvent {
	out := r.buf
	r.buf = nil
	return out
}
