package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrInvalidEncoding = errors.New("bytes are not valid in this encoding")
	ErrBinaryContent   = errors.New("content looks binary")
)

// TextEncoding is one candidate decoding for delimited text.
type TextEncoding struct {
	Name   string
	Decode func(data []byte) (string, error)
}

// DefaultEncodings returns the fallback order: UTF-8, then the Korean legacy CP949/EUC-KR
// code page, then UTF-16 with a byte order mark (Excel "Unicode text" exports).
func DefaultEncodings() []TextEncoding {
	return []TextEncoding{
		{Name: "utf-8", Decode: decodeUTF8},
		{Name: "cp949", Decode: decodeCP949},
		{Name: "utf-16", Decode: decodeUTF16},
	}
}

func decodeUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if bytes.IndexByte(data, 0) >= 0 {
		return "", ErrBinaryContent
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}
	return string(data), nil
}

func decodeCP949(data []byte) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", ErrBinaryContent
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	// The decoder substitutes invalid sequences instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", ErrInvalidEncoding
	}
	return string(out), nil
}

func decodeUTF16(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", ErrInvalidEncoding
	}
	return string(out), nil
}

// readDelimited parses decoded text into a single table named after the file.
func readDelimited(name, text string) ([]RawTable, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	delimiter := sniffDelimiter(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	table := RawTable{Source: name, Sheet: name}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(table.Rows)+1, err)
		}
		cells := make([]Cell, len(record))
		for i, field := range record {
			cells[i] = TextCell(field)
		}
		table.Rows = append(table.Rows, cells)
	}
	return []RawTable{table}, nil
}

// sniffDelimiter votes across the first non-empty lines; a single-column file falls back to comma.
func sniffDelimiter(text string) rune {
	votes := make(map[rune]int)
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" {
			continue
		}
		if seen++; seen > 20 {
			break
		}
		if d, count := detectDelimiter(line); count > 0 {
			votes[d] += count
		}
	}

	best, bestVotes := ',', 0
	for _, d := range delimiters {
		if votes[d] > bestVotes {
			best, bestVotes = d, votes[d]
		}
	}
	return best
}

var delimiters = []rune{';', '\t', ',', '|'}

func detectDelimiter(line string) (rune, int) {
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}
