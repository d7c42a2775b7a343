package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/screenflow/screenflow/pkg/flow"
)

// =============================================================================
// Flow Serialization API
// =============================================================================

// MarshalFlow converts a flow to JSON or YAML bytes.
func MarshalFlow(f *flow.Flow, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFlowTo(f, &buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFlowFile writes a flow to a file. The format follows the extension:
// .yaml and .yml produce YAML, anything else JSON.
func WriteFlowFile(f *flow.Flow, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return writeFlowTo(f, file, FormatFromPath(path))
}

// WriteFlow writes a flow to an io.Writer in the given format.
func WriteFlow(f *flow.Flow, w io.Writer, format string) error {
	return writeFlowTo(f, w, format)
}

// ReadFlowFile reads a flow document from a JSON or YAML file.
func ReadFlowFile(path string) (*flow.Flow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return readFlowFrom(file, FormatFromPath(path))
}

// ReadFlow decodes a flow document from an io.Reader.
func ReadFlow(r io.Reader, format string) (*flow.Flow, error) {
	return readFlowFrom(r, format)
}

// ReadPredictionsFile reads a recorded oracle answer: a JSON or YAML list of
// predictions, as returned by the detection service.
func ReadPredictionsFile(path string) ([]flow.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var preds []flow.Prediction
	switch FormatFromPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &preds)
	default:
		err = json.Unmarshal(data, &preds)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return preds, nil
}

// UnmarshalFlow decodes JSON bytes into the serialization type without
// converting it.
func UnmarshalFlow(data []byte) (Flow, error) {
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return Flow{}, err
	}
	return f, nil
}

// FormatFromPath infers the serialization format from a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeFlowTo(f *flow.Flow, w io.Writer, format string) error {
	out := FromFlow(f)
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

func readFlowFrom(r io.Reader, format string) (*flow.Flow, error) {
	var data Flow
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&data); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&data); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return ToFlow(data)
}
