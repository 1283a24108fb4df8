package flowfile

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/survey-hub/survey-hub/internal/domain/flow"
)

// Parse decodes a flow document from YAML (JSON is accepted as a subset).
func Parse(data []byte) (*flow.Document, error) {
	var doc flow.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing flow: %w", err)
	}
	return &doc, nil
}

// Load reads a flow document from disk.
func Load(path string) (*flow.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading flow file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Source serves one flow file, versioned by modification time and size.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Version(context.Context) (string, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(fi.ModTime().UnixNano(), 10) + ":" + strconv.FormatInt(fi.Size(), 10), nil
}

func (s *Source) Load(context.Context) (*flow.Document, error) {
	return Load(s.path)
}
