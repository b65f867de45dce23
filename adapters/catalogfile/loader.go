// Package catalogfile loads a catalog from HCL or YAML files.
// The file format is chosen by extension. Every loaded catalog is finalized,
// so callers only ever see catalogs that passed validation.
package catalogfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"research-planner/core/catalog"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

// Format is a catalog file format
type Format string

const (
	FormatHCL  Format = "hcl"
	FormatYAML Format = "yaml"
)

// Unlimited is the up_to value of a tier without an upper bound
const Unlimited = "unlimited"

// DetectFormat picks the format of a catalog file from its extension
func DetectFormat(filename string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return FormatHCL, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// Load reads, decodes and finalizes a catalog file
func Load(path string) (*catalog.Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "failed to read catalog", err).
			WithContext("path", path)
	}
	return Parse(src, path)
}

// Parse decodes and finalizes catalog source. filename selects the format
// and appears in diagnostics.
func Parse(src []byte, filename string) (*catalog.Catalog, error) {
	format, ok := DetectFormat(filename)
	if !ok {
		return nil, errors.Configf("unsupported catalog format: %s", filepath.Ext(filename))
	}

	var (
		cat *catalog.Catalog
		err error
	)
	switch format {
	case FormatHCL:
		cat, err = decodeHCL(src, filename)
	case FormatYAML:
		cat, err = decodeYAML(src, filename)
	}
	if err != nil {
		return nil, err
	}

	if err := cat.Finalize(); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "invalid catalog "+filename, err)
	}

	logging.Named("catalog").Debug("catalog loaded",
		zap.String("file", filename),
		zap.String("format", string(format)),
		zap.Int("services", len(cat.Services)),
		zap.Int("calculators", len(cat.Calculators)),
		zap.Int("questions", len(cat.Questionnaire.Nodes)))
	return cat, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Configf("%s: %q is not a number", field, s)
	}
	return d, nil
}
