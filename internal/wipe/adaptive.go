package wipe

import (
	"context"
	"time"
)

// AdaptiveStrategy scales the chunk size with measured throughput:
// larger chunks on faster regions (typically outer tracks), smaller on
// slower ones. It keeps a bounded trailing window of per-chunk speed
// samples, so memory does not grow with device size.
type AdaptiveStrategy struct {
	*session

	speeds         []float64 // trailing MB/s samples, newest last
	referenceSpeed float64
}

func NewAdaptiveStrategy(target Target, totalSize, chunkSize, startPosition int64, pretest *PretestResult, sink EventSink) *AdaptiveStrategy {
	referenceSpeed := DefaultReferenceSpeedMBps
	if pretest != nil && pretest.AverageSpeed > 0 {
		referenceSpeed = pretest.AverageSpeed
	}

	return &AdaptiveStrategy{
		session:        newSession(target, totalSize, chunkSize, startPosition, pretest, sink),
		speeds:         make([]float64, 0, speedWindowSize),
		referenceSpeed: referenceSpeed,
	}
}

func (a *AdaptiveStrategy) Name() Algorithm {
	return AlgorithmAdaptive
}

func (a *AdaptiveStrategy) Wipe(ctx context.Context) error {
	return a.run(ctx, a.nextChunkSize, a.observe)
}

// nextChunkSize scales the baseline by the ratio of recent throughput
// to the reference speed. Truncation to whole bytes happens before the
// value is used as a write length; the result is clamped to
// [MinChunkSize, MaxChunkSize].
func (a *AdaptiveStrategy) nextChunkSize() int64 {
	ratio := 1.0
	if avg := a.rollingAverage(); avg > 0 {
		ratio = avg / a.referenceSpeed
	}

	size := int64(float64(a.chunkSize) * ratio)

	if size < MinChunkSize {
		size = MinChunkSize
	}
	if size > MaxChunkSize {
		size = MaxChunkSize
	}

	return size
}

func (a *AdaptiveStrategy) rollingAverage() float64 {
	if len(a.speeds) == 0 {
		return 0
	}

	var sum float64
	for _, s := range a.speeds {
		sum += s
	}

	return sum / float64(len(a.speeds))
}

// observe appends the just-measured speed, evicting the oldest sample
// once the window exceeds its bound. The shared loop does not call
// observe for the truncated final chunk.
func (a *AdaptiveStrategy) observe(chunkBytes int64, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	speed := float64(chunkBytes) / elapsed.Seconds() / Megabyte

	a.speeds = append(a.speeds, speed)
	if len(a.speeds) > speedWindowSize {
		a.speeds = a.speeds[1:]
	}
}
