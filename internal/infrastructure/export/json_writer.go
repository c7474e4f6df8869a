// Package export writes the per-run JSON artifacts.
package export

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/ports"
)

//go:embed snapshot.schema.json
var snapshotSchemaJSON string

const snapshotSchemaName = "snapshot.schema.json"

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// JSONWriter writes the snapshot to a file after validating it against the
// embedded schema.
type JSONWriter struct {
	path string
}

var _ ports.SnapshotWriter = (*JSONWriter)(nil)

// NewJSONWriter targets path; parent directories are created on write.
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// WriteSnapshot validates and atomically replaces the snapshot file.
func (w *JSONWriter) WriteSnapshot(_ context.Context, snapshot domain.Snapshot) (domain.Artifact, error) {
	if snapshot.Articles == nil {
		snapshot.Articles = []domain.SnapshotItem{}
	}

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := ValidateSnapshot(raw); err != nil {
		return domain.Artifact{}, err
	}
	if err := WriteFileAtomic(w.path, raw); err != nil {
		return domain.Artifact{}, err
	}

	return domain.Artifact{
		Name:        filepath.Base(w.path),
		Path:        w.path,
		ContentType: "application/json",
	}, nil
}

// ValidateSnapshot checks raw against the embedded snapshot schema.
func ValidateSnapshot(raw []byte) error {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return fmt.Errorf("decode snapshot JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("snapshot schema validation failed: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(snapshotSchemaName, strings.NewReader(snapshotSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(snapshotSchemaName)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("document contains trailing content")
	}
	return value, nil
}
