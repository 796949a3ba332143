// Package source provides transaction sources for the indexer service.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/types"
)

var _ indexer.Source = (*JSONLines)(nil)

// JSONLines reads one JSON-encoded transaction per line.
type JSONLines struct {
	mtx    sync.Mutex
	dec    *json.Decoder
	closer io.Closer
	line   int
}

// NewJSONLines reads transactions from r.
func NewJSONLines(r io.Reader) *JSONLines {
	src := &JSONLines{dec: json.NewDecoder(r)}
	src.dec.DisallowUnknownFields()
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

// OpenJSONLines reads transactions from the file at path, or from stdin
// when path is "-".
func OpenJSONLines(path string) (*JSONLines, error) {
	if path == "-" {
		return NewJSONLines(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewJSONLines(f), nil
}

// Next implements indexer.Source. It returns io.EOF once every transaction
// has been read.
func (s *JSONLines) Next(ctx context.Context) (*types.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	var tx types.Tx
	if err := s.dec.Decode(&tx); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("transaction %d: %w", s.line+1, err)
	}
	s.line++
	return &tx, nil
}

// Close releases the underlying reader if it needs closing.
func (s *JSONLines) Close() error {
	if s.closer == nil || s.closer == os.Stdin {
		return nil
	}
	return s.closer.Close()
}
