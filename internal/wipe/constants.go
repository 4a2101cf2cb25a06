package wipe

// Byte units.
const (
	Kilobyte = 1024
	Megabyte = 1024 * Kilobyte
	Gigabyte = 1024 * Megabyte
	Terabyte = 1024 * Gigabyte
)

const (
	// DefaultChunkSize is the buffer size used when the user does not
	// override it.
	DefaultChunkSize = 100 * Megabyte

	// MaxSmallChunkSize caps the chunk size of the small-chunk
	// algorithm.
	MaxSmallChunkSize = 10 * Megabyte

	// MinChunkSize and MaxChunkSize bound the adaptive algorithm's
	// computed chunk sizes.
	MinChunkSize = 1 * Megabyte
	MaxChunkSize = 512 * Megabyte

	// DefaultCheckpointThreshold is how many bytes must accumulate
	// before progress is persisted again.
	DefaultCheckpointThreshold = 100 * Megabyte

	// MilestoneIncrementPercent is the progress milestone granularity.
	MilestoneIncrementPercent = 5
)

const (
	// LowSpeedThresholdMBps is the pretest average speed below which
	// the small-chunk algorithm is recommended.
	LowSpeedThresholdMBps = 50.0

	// HighVarianceThresholdMBps is the pretest speed deviation above
	// which the adaptive algorithm is recommended.
	HighVarianceThresholdMBps = 50.0

	// DefaultReferenceSpeedMBps is the adaptive algorithm's reference
	// speed when no pretest result is available.
	DefaultReferenceSpeedMBps = 100.0

	// speedWindowSize bounds the adaptive algorithm's trailing speed
	// window.
	speedWindowSize = 5
)
