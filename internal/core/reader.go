package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrFileTooLarge is returned when an upload exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrWrongFileType is returned for uploads whose name is not *.csv.
var ErrWrongFileType = errors.New("wrong file type")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readUpload reads at most maxSize bytes from r and returns them as text.
// A non-positive maxSize disables the limit. A leading UTF-8 BOM (added by spreadsheet exports on Windows) is dropped
// and invalid UTF-8 sequences are replaced with U+FFFD.
func readUpload(r io.Reader, maxSize int64) (string, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return string(bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))), nil
	}
	return string(data), nil
}

// isCSVName reports whether name has a .csv extension.
func isCSVName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
