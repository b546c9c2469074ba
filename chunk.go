package datastore

import "fmt"

// ChunkSize is the fixed split size of encoded values. It is part of the
// stored layout: every process sharing a store must use the same value.
const ChunkSize = 256 << 10

// splitChunks cuts data into full chunks followed by an optional partial
// tail. The slices alias data.
func splitChunks(data []byte) [][]byte {
	n := len(data) / ChunkSize
	if len(data)%ChunkSize != 0 {
		n++
	}
	chunks := make([][]byte, 0, n)
	for off := 0; off < len(data); off += ChunkSize {
		end := min(off+ChunkSize, len(data))
		chunks = append(chunks, data[off:end])
	}
	return chunks
}

// joinChunks concatenates chunks read back for rec and checks the result
// against the recorded size.
func joinChunks(rec KeyRecord, chunks [][]byte) ([]byte, error) {
	out := make([]byte, 0, rec.Size)
	for _, c := range chunks {
		out = append(out, c...)
	}
	if int64(len(out)) != rec.Size {
		return nil, fmt.Errorf("%w: reassembled %d bytes, recorded %d", ErrCorrupt, len(out), rec.Size)
	}
	return out, nil
}
