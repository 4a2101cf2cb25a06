package wipe

import "fmt"

// NewStrategy builds the strategy variant for an algorithm name. All
// variants share the same constructor signature; only the chunk-size
// policy differs.
func NewStrategy(algorithm Algorithm, target Target, totalSize, chunkSize, startPosition int64, pretest *PretestResult, sink EventSink) (Strategy, error) {
	if totalSize <= 0 {
		return nil, fmt.Errorf("device size must be positive, got %d", totalSize)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if startPosition < 0 || startPosition > totalSize {
		return nil, fmt.Errorf("start position %d outside device of size %d", startPosition, totalSize)
	}

	switch algorithm {
	case AlgorithmStandard:
		return NewStandardStrategy(target, totalSize, chunkSize, startPosition, pretest, sink), nil
	case AlgorithmSmallChunk:
		return NewSmallChunkStrategy(target, totalSize, chunkSize, startPosition, pretest, sink), nil
	case AlgorithmAdaptive:
		return NewAdaptiveStrategy(target, totalSize, chunkSize, startPosition, pretest, sink), nil
	case AlgorithmOverride:
		return NewOverrideStrategy(target, totalSize, chunkSize, startPosition, pretest, sink), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q (available: %v)", algorithm, Algorithms())
	}
}

// Algorithms lists the known strategy variants.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmStandard,
		AlgorithmSmallChunk,
		AlgorithmAdaptive,
		AlgorithmOverride,
	}
}
