package wire

import (
	"bytes"
	"testing"

	"github.com/ledgercore/node/pkg/interfaces"
)

func TestCompressDecompressRoundTrips(t *testing.T) {
	original := bytes.Repeat([]byte("writing queue number"), 64)

	compressed, err := Compress(original)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	decoded, _, err := Decompress(compressed, len(original))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decoded, original) {
		t.Fatal("decompressed data does not match the original")
	}
}

func TestDecompressClearsFlagWhenWithinLimit(t *testing.T) {
	original := []byte("small payload")
	compressed, err := Compress(original)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	_, flags, err := Decompress(compressed, len(original))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if flags != 0 {
		t.Fatalf("flags = %v, want 0 (cleared) when the decoded size fits destLimit", flags)
	}
}

func TestDecompressKeepsFlagWhenOverLimit(t *testing.T) {
	original := bytes.Repeat([]byte("x"), 256)
	compressed, err := Compress(original)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	_, flags, err := Decompress(compressed, len(original)-1)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if flags != interfaces.FlagCompressed {
		t.Fatalf("flags = %v, want FlagCompressed set when the decoded size exceeds destLimit", flags)
	}
}
