package wipe

// SelectAlgorithm maps device characteristics, pretest outcome and a
// user override to a strategy variant.
//
// A forced buffer size always wins and bypasses every heuristic.
// Non-rotational devices get the standard algorithm; rotational ones
// defer to the pretest recommendation when present.
func SelectAlgorithm(rotational bool, pretest *PretestResult, forcedChunkSize int64) Algorithm {
	if forcedChunkSize > 0 {
		return AlgorithmOverride
	}

	if !rotational {
		return AlgorithmStandard
	}

	if pretest != nil && pretest.Recommendation != "" {
		return pretest.Recommendation
	}

	return AlgorithmStandard
}
