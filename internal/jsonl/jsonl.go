// Package jsonl dumps an entity's rows to a JSON Lines file and loads them
// back. Each line is one JSON object keyed by attribute name. Blobs are
// base64 text and times are RFC 3339 text, as encoding/json renders them.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/records/pkg/record"
	"github.com/mesh-intelligence/records/pkg/types"
)

// maxLineSize bounds a single JSONL line; rows with large blobs need more
// than bufio.Scanner's default.
const maxLineSize = 16 << 20

// Export writes every record of q to path, replacing the file atomically.
// It returns the number of records written.
func Export(ctx context.Context, q record.Query, path string) (int, error) {
	records, err := q.All(ctx)
	if err != nil {
		return 0, err
	}
	lines := make([][]byte, len(records))
	for i, r := range records {
		line, err := json.Marshal(r.Attributes())
		if err != nil {
			return 0, fmt.Errorf("encoding record %d: %w", i+1, err)
		}
		lines[i] = line
	}
	if err := writeFile(path, lines); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ImportResult summarizes an Import run.
type ImportResult struct {
	Created int `json:"created" yaml:"created"`
	Skipped int `json:"skipped" yaml:"skipped"` // Blank or malformed lines.
}

// Import creates one record per line of path. Blank and malformed lines are
// skipped. Import stops at the first record that cannot be converted,
// validated or saved, returning the count so far and an error naming the
// line. Records already created stay created.
func Import(ctx context.Context, e *record.EntityType, path string) (ImportResult, error) {
	var res ImportResult
	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			res.Skipped++
			continue
		}
		attrs, err := decodeLine(e, line)
		if err != nil {
			return res, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if _, err := e.Create(ctx, attrs); err != nil {
			return res, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		res.Created++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scanning %s: %w", path, err)
	}
	return res, nil
}

// decodeLine converts one JSON object into attribute values of the declared
// types.
func decodeLine(e *record.EntityType, line []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding line: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decoding line: expected an object")
	}

	attrs := make(map[string]any, len(raw))
	for name, v := range raw {
		attr, ok := e.Attribute(name)
		if !ok {
			return nil, &types.UnknownAttributeError{Entity: e.Name(), Attribute: name}
		}
		value, err := fromJSON(attr, v)
		if err != nil {
			return nil, err
		}
		attrs[name] = value
	}
	return attrs, nil
}

// fromJSON maps a decoded JSON value onto the attribute's Go representation.
// Anything it cannot map is passed through so Record.Set reports the
// mismatch.
func fromJSON(attr record.Attribute, v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		switch attr.Type {
		case types.ValueTypeInteger, types.ValueTypeReal:
			return record.ParseValue(attr.Type, x.String())
		}
		// json.Number is a string kind; hand Set a float so a number in a
		// text column is a mismatch rather than its digits.
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
		return f, nil
	case string:
		switch attr.Type {
		case types.ValueTypeBlob:
			b, err := base64.StdEncoding.DecodeString(x)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
			}
			return b, nil
		case types.ValueTypeTime:
			return record.ParseValue(attr.Type, x)
		}
	}
	return v, nil
}

// writeFile atomically replaces path with lines using the temp file, fsync,
// rename pattern.
func writeFile(path string, lines [][]byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	if err := writeLines(w, lines); err != nil {
		return fail(err)
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func writeLines(w io.Writer, lines [][]byte) error {
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return nil
}
