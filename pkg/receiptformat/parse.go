package receiptformat

import (
	"encoding/json"
	"os"

	"github.com/go-faster/errors"
)

// Parse decodes and validates a .receipt document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse receipt")
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ParseFile reads and parses a .receipt document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read receipt file")
	}

	return Parse(data)
}

// ToJSON encodes the document with indentation.
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// SaveToFile writes the document to path.
func (d *Document) SaveToFile(path string) error {
	data, err := d.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encode receipt")
	}

	return os.WriteFile(path, data, 0o644)
}
