package format

const (
	// Word32 is the pointer width of the reference firmware target.
	Word32 = 4

	// Word64 is the pointer width of 64-bit targets.
	Word64 = 8

	// ChunkBits is the width of one bitmap scan chunk.
	ChunkBits = 32

	// ChunkBytes is ChunkBits in bytes.
	ChunkBytes = ChunkBits / 8

	// MaxOrder bounds every size-class exponent so block arithmetic
	// stays well inside 32 bits.
	MaxOrder = 30
)
