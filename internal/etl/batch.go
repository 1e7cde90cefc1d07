package etl

// DefaultBatchSize bounds the rows sent in one bulk insert.
const DefaultBatchSize = 1000

// Chunk splits items into consecutive slices of at most size elements. The
// last chunk may be shorter and empty input yields no chunks. A non-positive
// size means DefaultBatchSize.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
