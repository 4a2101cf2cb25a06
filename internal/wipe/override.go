package wipe

// OverrideStrategy is StandardStrategy under a different name. It is
// only ever selected when the caller explicitly forced a buffer size;
// selection bypasses pretest heuristics entirely.
type OverrideStrategy struct {
	StandardStrategy
}

func NewOverrideStrategy(target Target, totalSize, chunkSize, startPosition int64, pretest *PretestResult, sink EventSink) *OverrideStrategy {
	return &OverrideStrategy{
		StandardStrategy: *NewStandardStrategy(target, totalSize, chunkSize, startPosition, pretest, sink),
	}
}

func (s *OverrideStrategy) Name() Algorithm {
	return AlgorithmOverride
}
