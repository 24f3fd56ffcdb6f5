package config

import (
	"os"

	"github.com/emrgen/propagate/internal/link"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadSchema reads the link field configuration of every collection from a YAML file.
// An empty path yields an empty schema.
func LoadSchema(path string) (*link.Schema, error) {
	if path == "" {
		return &link.Schema{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %s", path)
	}

	return ParseSchema(data)
}

func ParseSchema(data []byte) (*link.Schema, error) {
	schema := &link.Schema{}
	if err := yaml.Unmarshal(data, schema); err != nil {
		return nil, errors.Wrap(err, "parse schema")
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}

	return schema, nil
}
