package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

const (
	ndjsonExt = ".ndjson"
	gzipExt   = ".gz"

	// maxLineSize bounds one NDJSON line when reading.
	maxLineSize = 16 << 20
)

// NDJSONWriter writes one JSON document per line, optionally gzip
// compressed. It is safe for concurrent use.
type NDJSONWriter struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	gz    *gzip.Writer
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
}

// CreateNDJSON creates (or truncates) an NDJSON file. With compress set,
// ".gz" is appended to path unless already present.
func CreateNDJSON(path string, compress bool) (*NDJSONWriter, error) {
	if compress && !strings.HasSuffix(path, gzipExt) {
		path += gzipExt
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	w := &NDJSONWriter{path: path, file: f}
	var out io.Writer = f
	if strings.HasSuffix(path, gzipExt) {
		w.gz = gzip.NewWriter(f)
		out = w.gz
	}
	w.buf = bufio.NewWriter(out)
	w.enc = json.NewEncoder(w.buf)
	w.enc.SetEscapeHTML(false)
	return w, nil
}

// Write encodes v as one line.
func (w *NDJSONWriter) Write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Count returns the number of lines written.
func (w *NDJSONWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the file path, including any ".gz" suffix.
func (w *NDJSONWriter) Path() string {
	return w.path
}

// Close flushes and closes the file.
func (w *NDJSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, err)
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing %s: %w", w.path, err)
	}
	return nil
}

// ReadNDJSON calls fn for each JSON document in path. Files ending in ".gz"
// are decompressed. Blank lines and lines that are not valid JSON are
// skipped.
func ReadNDJSON(path string, fn func(json.RawMessage) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(path, gzipExt) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening gzip %s: %w", path, err)
		}
		defer gz.Close()
		in = gz
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		doc := make(json.RawMessage, len(line))
		copy(doc, line)
		if err := fn(doc); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// ResolveNDJSON finds the file for a dump stream name in dir, preferring
// the compressed variant.
func ResolveNDJSON(dir, name string) (string, bool) {
	base := filepath.Join(dir, name+ndjsonExt)
	for _, candidate := range []string{base + gzipExt, base} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
