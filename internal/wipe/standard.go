package wipe

import "context"

// StandardStrategy writes fixed-size chunks sequentially through the
// device. Default when no pretest was run or when the pretest found
// consistent, adequate throughput.
type StandardStrategy struct {
	*session
}

func NewStandardStrategy(target Target, totalSize, chunkSize, startPosition int64, pretest *PretestResult, sink EventSink) *StandardStrategy {
	return &StandardStrategy{
		session: newSession(target, totalSize, chunkSize, startPosition, pretest, sink),
	}
}

func (s *StandardStrategy) Name() Algorithm {
	return AlgorithmStandard
}

func (s *StandardStrategy) Wipe(ctx context.Context) error {
	return s.run(ctx, func() int64 { return s.chunkSize }, nil)
}
