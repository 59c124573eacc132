// Package codec reads and writes the textual record format engines use
// for Import/Export: one record per line, `key "lastname" "name" year
// "city" coins`, quotes stripped on read and re-added on write.
package codec

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/neekrasov/kvstore/internal/model"
)

// Pair is one key/record entry as it exists on disk.
type Pair struct {
	Key    model.Key
	Record model.Record
}

// Load reads every pair out of path. Any syntax error anywhere in the
// file — fewer than six tokens on a line, an unterminated quote, a
// non-numeric year or coins field, or a file with no records at all —
// aborts the whole load and reports CorruptedFile. The caller never sees
// a partial result: either every line parses, or nothing is returned.
func Load(path string) ([]Pair, model.Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.CannotOpenFile
	}
	defer f.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(f)
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
	if err := scanner.Err(); err != nil {
		return nil, model.CorruptedFile
	}
	if len(pairs) == 0 {
		return nil, model.CorruptedFile
	}

	return pairs, model.Ok
}

// Save writes pairs to path, one line per pair, and returns the count
// written.
func Save(path string, pairs []Pair) (int, model.Error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, model.CannotOpenFile
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range pairs {
		if _, err := w.WriteString(formatLine(p)); err != nil {
			return 0, model.CannotOpenFile
		}
	}
	if err := w.Flush(); err != nil {
		return 0, model.CannotOpenFile
	}

	return len(pairs), model.Ok
}

func formatLine(p Pair) string {
	return fmt.Sprintf("%s %q %q %d %q %d\n",
		p.Key, p.Record.LastName, p.Record.Name,
		p.Record.BirthYear, p.Record.City, p.Record.Coins)
}

func parseLine(line string) (Pair, model.Error) {
	tokens, ok := tokenize(line)
	if !ok || len(tokens) < 6 {
		return Pair{}, model.CorruptedFile
	}

	year, err := strconv.Atoi(tokens[3])
	if err != nil {
		return Pair{}, model.CorruptedFile
	}
	coins, err := strconv.Atoi(tokens[5])
	if err != nil {
		return Pair{}, model.CorruptedFile
	}

	return Pair{
		Key: tokens[0],
		Record: model.Record{
			LastName:  tokens[1],
			Name:      tokens[2],
			BirthYear: year,
			City:      tokens[4],
			Coins:     coins,
		},
	}, model.Ok
}

// tokenize splits line on whitespace, except that a double-quoted span is
// kept as one token with its quotes stripped. Reports false for an
// unterminated quote or a stray quote inside an unquoted token.
func tokenize(line string) ([]string, bool) {
	var tokens []string
	i, n := 0, len(line)

	for i < n {
		for i < n && line[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}

		if line[i] == '"' {
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				return nil, false
			}
			tokens = append(tokens, line[i+1:i+1+end])
			i = i + 1 + end + 1
			continue
		}

		j := i
		for j < n && line[j] != ' ' {
			if line[j] == '"' {
				return nil, false
			}
			j++
		}
		tokens = append(tokens, line[i:j])
		i = j
	}

	return tokens, true
}
