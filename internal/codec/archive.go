package codec

import (
	"bufio"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/neekrasov/kvstore/internal/model"
)

// SaveArchive writes pairs to path in the same line format Save uses,
// zstd-compressed. It's an alternative export target for callers that
// want a smaller file on disk; the canonical, human-editable format
// remains Save/Load.
func SaveArchive(path string, pairs []Pair) (int, model.Error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, model.CannotOpenFile
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return 0, model.CannotOpenFile
	}

	for _, p := range pairs {
		if _, err := enc.Write([]byte(formatLine(p))); err != nil {
			enc.Close()
			return 0, model.CannotOpenFile
		}
	}
	if err := enc.Close(); err != nil {
		return 0, model.CannotOpenFile
	}

	return len(pairs), model.Ok
}

// LoadArchive reads pairs back out of a file written by SaveArchive,
// applying the same abort-before-apply corruption rule as Load.
func LoadArchive(path string) ([]Pair, model.Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.CannotOpenFile
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, model.CorruptedFile
	}
	defer dec.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(dec)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		pair, errKind := parseLine(line)
		if errKind != model.Ok {
			return nil, model.CorruptedFile
		}
		pairs = append(pairs, pair)
	}
	if scanner.Err() != nil || len(pairs) == 0 {
		return nil, model.CorruptedFile
	}

	return pairs, model.Ok
}
