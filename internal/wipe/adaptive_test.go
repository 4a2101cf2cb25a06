package wipe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveBaselineWithoutSamples(t *testing.T) {
	s := NewAdaptiveStrategy(newMemTarget(Gigabyte), Gigabyte, 100*Megabyte, 0, nil, nil)

	// No samples yet: ratio 1.0, baseline unchanged.
	assert.Equal(t, int64(100*Megabyte), s.nextChunkSize())
}

func TestAdaptiveScalesWithThroughput(t *testing.T) {
	s := NewAdaptiveStrategy(newMemTarget(Gigabyte), Gigabyte, 100*Megabyte, 0, nil, nil)

	// Reference speed defaults to 100 MB/s.
	s.speeds = []float64{200, 200}
	assert.Equal(t, int64(200*Megabyte), s.nextChunkSize())

	s.speeds = []float64{25}
	assert.Equal(t, int64(25*Megabyte), s.nextChunkSize())
}

func TestAdaptiveClampsToBounds(t *testing.T) {
	s := NewAdaptiveStrategy(newMemTarget(Gigabyte), Gigabyte, 100*Megabyte, 0, nil, nil)

	s.speeds = []float64{10000}
	assert.Equal(t, int64(MaxChunkSize), s.nextChunkSize())

	s.speeds = []float64{0.01}
	assert.Equal(t, int64(MinChunkSize), s.nextChunkSize())
}

func TestAdaptiveTruncatesToWholeBytes(t *testing.T) {
	pretest := &PretestResult{AverageSpeed: 7}
	s := NewAdaptiveStrategy(newMemTarget(Gigabyte), Gigabyte, 3*Megabyte, 0, pretest, nil)

	s.speeds = []float64{10}

	base := float64(3 * Megabyte)
	want := int64(base * 10.0 / 7.0)
	assert.Equal(t, want, s.nextChunkSize())
}

func TestAdaptiveReferenceSpeed(t *testing.T) {
	target := newMemTarget(Gigabyte)

	noPretest := NewAdaptiveStrategy(target, Gigabyte, 100*Megabyte, 0, nil, nil)
	assert.Equal(t, float64(DefaultReferenceSpeedMBps), noPretest.referenceSpeed)

	withPretest := NewAdaptiveStrategy(target, Gigabyte, 100*Megabyte, 0, &PretestResult{AverageSpeed: 250}, nil)
	assert.Equal(t, 250.0, withPretest.referenceSpeed)

	zeroAverage := NewAdaptiveStrategy(target, Gigabyte, 100*Megabyte, 0, &PretestResult{}, nil)
	assert.Equal(t, float64(DefaultReferenceSpeedMBps), zeroAverage.referenceSpeed)
}

func TestAdaptiveWindowEviction(t *testing.T) {
	s := NewAdaptiveStrategy(newMemTarget(Gigabyte), Gigabyte, 100*Megabyte, 0, nil, nil)

	for i := 1; i <= 8; i++ {
		s.observe(int64(i)*Megabyte, time.Second)
	}

	// The window holds the newest five samples only.
	assert.Equal(t, []float64{4, 5, 6, 7, 8}, s.speeds)
}

func TestAdaptiveObserveIgnoresZeroElapsed(t *testing.T) {
	s := NewAdaptiveStrategy(newMemTarget(Gigabyte), Gigabyte, 100*Megabyte, 0, nil, nil)

	s.observe(Megabyte, 0)
	assert.Empty(t, s.speeds)

	s.observe(10*Megabyte, time.Second)
	require.Len(t, s.speeds, 1)
	assert.InDelta(t, 10.0, s.speeds[0], 0.001)
}

func TestAdaptiveWipeCompletes(t *testing.T) {
	// 5MB device with a 1MB baseline. The memory target rejects writes
	// past the end, so success proves every chunk stayed in bounds.
	target := newMemTarget(5 * Megabyte)

	s := NewAdaptiveStrategy(target, 5*Megabyte, Megabyte, 0, nil, &capture{})

	require.NoError(t, s.Wipe(context.Background()))
	assert.Equal(t, int64(5*Megabyte), s.Written())
	assert.Equal(t, AlgorithmAdaptive, s.Name())
}
