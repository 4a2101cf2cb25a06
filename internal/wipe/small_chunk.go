package wipe

// SmallChunkStrategy behaves like StandardStrategy but clamps the chunk
// size to MaxSmallChunkSize, bounding the latency of any single
// blocking write on slow or unreliable media.
type SmallChunkStrategy struct {
	StandardStrategy
}

func NewSmallChunkStrategy(target Target, totalSize, chunkSize, startPosition int64, pretest *PretestResult, sink EventSink) *SmallChunkStrategy {
	if chunkSize > MaxSmallChunkSize {
		chunkSize = MaxSmallChunkSize
	}

	return &SmallChunkStrategy{
		StandardStrategy: *NewStandardStrategy(target, totalSize, chunkSize, startPosition, pretest, sink),
	}
}

func (s *SmallChunkStrategy) Name() Algorithm {
	return AlgorithmSmallChunk
}
