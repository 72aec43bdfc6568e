package wire

import (
	"bytes"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/ledgercore/node/pkg/interfaces"
)

// Compress LZ4-encodes data. Compressed payloads carry FlagCompressed until
// the receiver has decoded them.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("wire: lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("wire: lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. destLimit is the declared destination
// buffer size; per §4.1, once the decoded size fits within destLimit the
// caller clears FlagCompressed on the frame it just decoded.
func Decompress(compressed []byte, destLimit int) (data []byte, flagsToCleared interfaces.FrameFlags, err error) {
	r := lz4.NewReader(bytes.NewReader(compressed))
	buf := make([]byte, 0, destLimit)
	out := bytes.NewBuffer(buf)
	if _, err = out.ReadFrom(r); err != nil {
		return nil, 0, fmt.Errorf("wire: lz4 decompress: %w", err)
	}
	data = out.Bytes()
	if len(data) <= destLimit {
		return data, 0, nil
	}
	return data, interfaces.FlagCompressed, nil
}
