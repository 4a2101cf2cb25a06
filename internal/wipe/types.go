package wipe

import (
	"io"
	"time"
)

// Algorithm identifies a wipe strategy variant. The string values are
// persisted in the progress record and must stay stable.
type Algorithm string

const (
	AlgorithmStandard   Algorithm = "standard"
	AlgorithmSmallChunk Algorithm = "small_chunk"
	AlgorithmAdaptive   Algorithm = "adaptive_chunk"
	AlgorithmOverride   Algorithm = "buffer_override"
)

// Target is the destination of a wipe pass. Writes are positioned and
// must be durably synced before the loop advances. *os.File satisfies
// Target.
type Target interface {
	io.WriterAt
	Sync() error
}

// EventSink consumes checkpoint and milestone events emitted by a
// running strategy. The strategy stays ignorant of what the consumer
// does with them (persist, display).
type EventSink interface {
	// Checkpoint fires after at least the checkpoint threshold of bytes
	// accumulated since the previous checkpoint.
	Checkpoint(written, totalSize, chunkSize int64)

	// Milestone fires once per 5% bucket crossed, with the estimated
	// wall-clock finish time.
	Milestone(percent int, estimatedFinish time.Time)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Checkpoint(written, totalSize, chunkSize int64)   {}
func (NopSink) Milestone(percent int, estimatedFinish time.Time) {}

// MultiSink fans events out to several consumers in order.
type MultiSink []EventSink

func (m MultiSink) Checkpoint(written, totalSize, chunkSize int64) {
	for _, s := range m {
		s.Checkpoint(written, totalSize, chunkSize)
	}
}

func (m MultiSink) Milestone(percent int, estimatedFinish time.Time) {
	for _, s := range m {
		s.Milestone(percent, estimatedFinish)
	}
}
