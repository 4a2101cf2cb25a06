package wipe

import (
	"context"
	"fmt"
	"time"
)

// Strategy runs one full overwrite pass over a target device.
//
// Wipe returns nil when written reached the device size, ctx.Err() when
// cancellation was observed between iterations, or the first write
// error otherwise. Written stays valid after Wipe returns on any path;
// it is the single authority for how much was actually written.
type Strategy interface {
	Wipe(ctx context.Context) error
	Written() int64
	Name() Algorithm
}

// session holds the counters shared by all strategy variants. A
// session belongs to exactly one Wipe call.
type session struct {
	target              Target
	totalSize           int64
	chunkSize           int64
	startPosition       int64
	written             int64
	sinceCheckpoint     int64
	lastMilestone       int
	checkpointThreshold int64
	startTime           time.Time
	pretest             *PretestResult
	sink                EventSink
}

func newSession(target Target, totalSize, chunkSize, startPosition int64, pretest *PretestResult, sink EventSink) *session {
	if sink == nil {
		sink = NopSink{}
	}

	s := &session{
		target:              target,
		totalSize:           totalSize,
		chunkSize:           chunkSize,
		startPosition:       startPosition,
		written:             startPosition,
		checkpointThreshold: DefaultCheckpointThreshold,
		pretest:             pretest,
		sink:                sink,
	}

	// A resumed session must not re-announce milestones already shown.
	if startPosition > 0 {
		s.lastMilestone = milestoneBucket(startPosition, totalSize)
	}

	return s
}

// Written reports how many bytes of the device hold completed chunk
// writes, including the resume offset.
func (s *session) Written() int64 {
	return s.written
}

// SetCheckpointThreshold overrides the checkpoint threshold. Must be
// called before Wipe.
func (s *session) SetCheckpointThreshold(bytes int64) {
	if bytes > 0 {
		s.checkpointThreshold = bytes
	}
}

// run is the shared write loop. nextChunk supplies the policy chunk
// size for the coming iteration; observe, when non-nil, receives the
// measured duration of every full-size chunk write. Truncated final
// chunks are not reported to observe so a short tail does not skew
// speed statistics.
func (s *session) run(ctx context.Context, nextChunk func() int64, observe func(chunkBytes int64, elapsed time.Duration)) error {
	s.startTime = time.Now()

	for s.written < s.totalSize {
		// Cancellation is only observed between iterations, never
		// mid-write.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunkBytes := nextChunk()
		truncated := false

		if remaining := s.totalSize - s.written; chunkBytes > remaining {
			chunkBytes = remaining
			truncated = true
		}

		buf := GetBuffer(int(chunkBytes))
		if err := FillRandom(buf); err != nil {
			PutBuffer(buf)
			return err
		}

		writeStart := time.Now()

		if err := writeFull(s.target, buf, s.written); err != nil {
			PutBuffer(buf)
			return fmt.Errorf("write at offset %d failed: %w", s.written, err)
		}

		if err := s.target.Sync(); err != nil {
			PutBuffer(buf)
			return fmt.Errorf("sync at offset %d failed: %w", s.written, err)
		}

		elapsed := time.Since(writeStart)
		PutBuffer(buf)

		if observe != nil && !truncated {
			observe(chunkBytes, elapsed)
		}

		s.written += chunkBytes
		s.sinceCheckpoint += chunkBytes

		// Accumulation-based trigger: chunk sizes need not divide the
		// threshold evenly.
		if s.sinceCheckpoint >= s.checkpointThreshold {
			s.sink.Checkpoint(s.written, s.totalSize, s.chunkSize)
			s.sinceCheckpoint = 0
		}

		s.announceMilestone()
	}

	return nil
}

func (s *session) announceMilestone() {
	bucket := milestoneBucket(s.written, s.totalSize)
	if bucket <= s.lastMilestone {
		return
	}

	s.lastMilestone = bucket
	s.sink.Milestone(bucket, s.estimatedFinish())
}

func (s *session) estimatedFinish() time.Time {
	elapsed := time.Since(s.startTime)
	progressed := s.written - s.startPosition

	if progressed <= 0 || elapsed <= 0 {
		return time.Time{}
	}

	remaining := float64(s.totalSize - s.written)
	eta := time.Duration(remaining / (float64(progressed) / elapsed.Seconds()) * float64(time.Second))

	return time.Now().Add(eta)
}

// milestoneBucket returns the 5% bucket for a progress position.
func milestoneBucket(written, totalSize int64) int {
	if totalSize <= 0 {
		return 0
	}

	percent := float64(written) / float64(totalSize) * 100

	return int(percent) / MilestoneIncrementPercent * MilestoneIncrementPercent
}

// writeFull writes buf at offset off, retrying short writes.
func writeFull(t Target, buf []byte, off int64) error {
	for len(buf) > 0 {
		n, err := t.WriteAt(buf, off)
		if n > 0 {
			buf = buf[n:]
			off += int64(n)
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("write returned 0 bytes without error")
		}
	}

	return nil
}
