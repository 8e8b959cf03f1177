// Package transport implements TransportFanout (deliver/publish/store
// precedence with fallback) and StoreFile (the append-only ring-by-
// truncation log backing it), per spec §4.9. Grounded on
// jangala-dev-devicecode-go's preference for small os.File-backed helpers
// with explicit error returns over a buffering abstraction.
package transport

import (
	"bufio"
	"os"

	"github.com/matthewgream/battery-pack-sub000/errcode"
)

// StoreFile is an append-only newline-delimited log capped at totalBytes;
// once an append would exceed the cap, the file is truncated and recreated
// (ring by truncation) rather than rotated to a second file.
type StoreFile struct {
	path       string
	totalBytes int64
	size       int64
}

func OpenStoreFile(path string, totalBytes int64) (*StoreFile, error) {
	info, err := os.Stat(path)
	size := int64(0)
	if err == nil {
		size = info.Size()
	} else if !os.IsNotExist(err) {
		return nil, errcode.New("store.open", errcode.StoreFailed, err.Error())
	}
	return &StoreFile{path: path, totalBytes: totalBytes, size: size}, nil
}

// Append writes one line. If appending would exceed the capacity, the
// file is truncated and recreated first (spec §4.9 "ring by truncation").
func (s *StoreFile) Append(data []byte) error {
	line := append(append([]byte{}, data...), '\n')
	if s.size+int64(len(line)) > s.totalBytes {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return errcode.New("store.append", errcode.StoreFailed, err.Error())
		}
		s.size = 0
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errcode.New("store.append", errcode.StoreFailed, err.Error())
	}
	defer f.Close()
	n, err := f.Write(line)
	if err != nil {
		return errcode.New("store.append", errcode.StoreFailed, err.Error())
	}
	s.size += int64(n)
	return nil
}

// FreePercent reports the fraction of capacity remaining, for the
// STORE_SIZE alarm predicate.
func (s *StoreFile) FreePercent() float64 {
	if s.totalBytes == 0 {
		return 0
	}
	return 100 * float64(s.totalBytes-s.size) / float64(s.totalBytes)
}

func (s *StoreFile) Size() int64 { return s.size }

// IsEmpty reports whether the store currently holds no buffered lines.
func (s *StoreFile) IsEmpty() bool { return s.size == 0 }

// Lines opens the file for a read-by-line drain pass.
func (s *StoreFile) Lines() (*LineIterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LineIterator{}, nil
		}
		return nil, errcode.New("store.lines", errcode.StoreFailed, err.Error())
	}
	return &LineIterator{file: f, scanner: bufio.NewScanner(f)}, nil
}

// LineIterator walks a store file one line at a time; the caller must
// call Close when done (or after draining to EOF).
type LineIterator struct {
	file    *os.File
	scanner *bufio.Scanner
}

func (it *LineIterator) Next() (string, bool) {
	if it.scanner == nil || !it.scanner.Scan() {
		return "", false
	}
	return it.scanner.Text(), true
}

func (it *LineIterator) Close() error {
	if it.file == nil {
		return nil
	}
	return it.file.Close()
}

// Truncate clears the backing file, used after a drain that consumed
// every buffered line successfully.
func (s *StoreFile) Truncate() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errcode.New("store.truncate", errcode.StoreFailed, err.Error())
	}
	s.size = 0
	return nil
}
