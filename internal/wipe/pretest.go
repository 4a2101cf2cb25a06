package wipe

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// PretestResult holds the throughput samples measured before a wipe
// starts. The persisted form carries only the raw measurements; the
// recommendation is re-derivable and the chosen algorithm is stored
// separately in the progress record.
type PretestResult struct {
	Speeds        []float64 `json:"speeds"`
	AverageSpeed  float64   `json:"average_speed"`
	SpeedVariance float64   `json:"speed_variance"`

	Recommendation Algorithm `json:"-"`
	Reason         string    `json:"-"`
}

// Pretest measures device write throughput at three offsets to drive
// strategy selection. It is an optimization, never a safety gate: any
// I/O error is reported to the caller, who falls back to the standard
// algorithm.
type Pretest struct {
	target    Target
	totalSize int64
	chunkSize int64
	log       *zap.SugaredLogger

	// Thresholds may be overridden before Run.
	LowSpeedThreshold     float64
	HighVarianceThreshold float64
}

// pretestOffsets are the probe positions as fractions of device size.
var pretestOffsets = [3]float64{0.05, 0.50, 0.95}

func NewPretest(target Target, totalSize, chunkSize int64, log *zap.SugaredLogger) *Pretest {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Pretest{
		target:    target,
		totalSize: totalSize,
		chunkSize: chunkSize,
		log:       log,

		LowSpeedThreshold:     LowSpeedThresholdMBps,
		HighVarianceThreshold: HighVarianceThresholdMBps,
	}
}

// Run writes one probe chunk of random data at 5%, 50% and 95% of the
// device, measuring wall-clock time per durable write.
func (p *Pretest) Run(ctx context.Context) (*PretestResult, error) {
	if p.chunkSize <= 0 || p.chunkSize > p.totalSize {
		return nil, fmt.Errorf("probe chunk size %d invalid for device size %d", p.chunkSize, p.totalSize)
	}

	speeds := make([]float64, 0, len(pretestOffsets))

	for _, fraction := range pretestOffsets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		position := int64(float64(p.totalSize) * fraction)
		if position+p.chunkSize > p.totalSize {
			position = p.totalSize - p.chunkSize
		}

		speed, err := p.probe(position)
		if err != nil {
			return nil, fmt.Errorf("pretest probe at offset %d failed: %w", position, err)
		}

		p.log.Debugw("pretest probe", "offset", position, "speed_mbps", speed)
		speeds = append(speeds, speed)
	}

	result := analyzeSpeeds(speeds, p.LowSpeedThreshold, p.HighVarianceThreshold)

	p.log.Infow("pretest complete",
		"average_mbps", result.AverageSpeed,
		"stddev_mbps", result.SpeedVariance,
		"recommendation", result.Recommendation,
		"reason", result.Reason)

	return result, nil
}

func (p *Pretest) probe(position int64) (float64, error) {
	buf := GetBuffer(int(p.chunkSize))
	defer PutBuffer(buf)

	if err := FillRandom(buf); err != nil {
		return 0, err
	}

	start := time.Now()

	if err := writeFull(p.target, buf, position); err != nil {
		return 0, err
	}
	if err := p.target.Sync(); err != nil {
		return 0, err
	}

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-9
	}

	return float64(p.chunkSize) / elapsed / Megabyte, nil
}

// analyzeSpeeds computes the summary statistics and recommendation.
// Low average speed takes priority over high variance when both hold.
func analyzeSpeeds(speeds []float64, lowSpeed, highVariance float64) *PretestResult {
	var sum float64
	for _, s := range speeds {
		sum += s
	}
	average := sum / float64(len(speeds))

	var sumSquares float64
	for _, s := range speeds {
		d := s - average
		sumSquares += d * d
	}
	stddev := math.Sqrt(sumSquares / float64(len(speeds)))

	result := &PretestResult{
		Speeds:        speeds,
		AverageSpeed:  average,
		SpeedVariance: stddev,
	}

	switch {
	case average < lowSpeed:
		result.Recommendation = AlgorithmSmallChunk
		result.Reason = "low average speed - small chunks for better responsiveness"
	case stddev > highVariance:
		result.Recommendation = AlgorithmAdaptive
		result.Reason = "high speed variance detected - adaptive chunk sizing recommended"
	default:
		result.Recommendation = AlgorithmStandard
		result.Reason = "consistent performance - standard algorithm recommended"
	}

	return result
}
