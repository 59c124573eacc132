package codec_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neekrasov/kvstore/internal/codec"
	"github.com/neekrasov/kvstore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	pairs := []codec.Pair{
		{Key: "k1", Record: model.Record{LastName: "Ivanov", Name: "Ivan", BirthYear: 1990, City: "Kazan", Coins: 10}},
		{Key: "k2", Record: model.Record{LastName: "O'Neil", Name: "Sam Jay", BirthYear: 2001, City: "New York", Coins: -5}},
	}

	path := filepath.Join(t.TempDir(), "export.txt")
	n, errKind := codec.Save(path, pairs)
	require.Equal(t, model.Ok, errKind)
	require.Equal(t, 2, n)

	loaded, errKind := codec.Load(path)
	require.Equal(t, model.Ok, errKind)
	assert.Equal(t, pairs, loaded)
}

func TestLoad_CannotOpenFile(t *testing.T) {
	t.Parallel()

	_, errKind := codec.Load(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	assert.Equal(t, model.CannotOpenFile, errKind)
}

func TestLoad_EmptyFileIsCorrupted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, errKind := codec.Load(path)
	assert.Equal(t, model.CorruptedFile, errKind)
}

func TestLoad_CorruptedContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"too few tokens", "k1 \"Ivanov\" \"Ivan\" 1990\n"},
		{"unterminated quote", "k1 \"Ivanov \"Ivan\" 1990 \"Kazan\" 10\n"},
		{"non-numeric year", "k1 \"Ivanov\" \"Ivan\" notayear \"Kazan\" 10\n"},
		{"one bad line among good ones", "k1 \"A\" \"B\" 1990 \"C\" 1\nk2 \"D\" \"E\" oops \"F\" 2\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "bad.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, errKind := codec.Load(path)
			assert.Equal(t, model.CorruptedFile, errKind)
		})
	}
}

func TestArchiveSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	pairs := []codec.Pair{
		{Key: "k1", Record: model.Record{LastName: "Petrov", Name: "Petr", BirthYear: 1985, City: "Omsk", Coins: 42}},
	}

	path := filepath.Join(t.TempDir(), "export.zst")
	n, errKind := codec.SaveArchive(path, pairs)
	require.Equal(t, model.Ok, errKind)
	require.Equal(t, 1, n)

	loaded, errKind := codec.LoadArchive(path)
	require.Equal(t, model.Ok, errKind)
	assert.Equal(t, pairs, loaded)
}

func TestLoadArchive_CorruptedContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-zstd.zst")
	require.NoError(t, os.WriteFile(path, []byte("not actually zstd"), 0o644))

	_, errKind := codec.LoadArchive(path)
	assert.Equal(t, model.CorruptedFile, errKind)
}
