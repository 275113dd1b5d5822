package scene

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format selects the serialisation of a composition file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a composition in the given format.
func Decode(data []byte, format Format) (*Composition, error) {
	var comp Composition
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &comp); err != nil {
			return nil, fmt.Errorf("decode yaml composition: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &comp); err != nil {
			return nil, fmt.Errorf("decode json composition: %w", err)
		}
	}
	return &comp, nil
}

// DecodeScene parses a single scene in the given format.
func DecodeScene(data []byte, format Format) (Scene, error) {
	var s Scene
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return Scene{}, fmt.Errorf("decode %s scene: %w", format, err)
	}
	return s, nil
}

// DecodeElement parses a single element, picking its concrete kind from the
// "type" field.
func DecodeElement(data []byte, format Format) (Element, error) {
	if format != FormatYAML {
		el, err := decodeElementJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode json element: %w", err)
		}
		return el, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml element: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("decode yaml element: empty document")
	}
	el, err := decodeElementYAML(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("decode yaml element: %w", err)
	}
	return el, nil
}

// Encode serialises a composition in the given format.
func Encode(comp *Composition, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(comp); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.MarshalIndent(comp, "", "  ")
	}
}

// WriteComposition writes a composition to a JSON or YAML file
func WriteComposition(comp *Composition, path string) error {
	data, err := Encode(comp, FormatFromPath(path))
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadComposition reads a composition from a JSON or YAML file
func ReadComposition(path string) (*Composition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Decode(data, FormatFromPath(path))
}
