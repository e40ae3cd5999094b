package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// productFile is the on-disk layout of a device product configuration
type productFile struct {
	Fold FoldConfig `yaml:"fold" toml:"fold"`
}

// LoadProduct overlays the fold section of a YAML or TOML product file onto fold.
// Keys missing from the file keep their current values.
func LoadProduct(path string, fold *FoldConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read product config: %w", err)
	}

	doc := productFile{Fold: *fold}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		return fmt.Errorf("product config %s: unsupported format", path)
	}
	if err != nil {
		return fmt.Errorf("parse product config %s: %w", path, err)
	}
	doc.Fold.ProductConfig = fold.ProductConfig
	*fold = doc.Fold
	return nil
}
