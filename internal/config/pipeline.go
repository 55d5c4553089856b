package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SignPolicy controls how the normalizer treats negative expense amounts.
// Whether a negative expense is a data quirk or a meaningful refund depends
// on the uploader's bookkeeping conventions, so it is a configuration choice.
type SignPolicy string

const (
	// SignAbsolute normalizes expense amounts to positive magnitude.
	SignAbsolute SignPolicy = "absolute"
	// SignPreserve keeps the sign as parsed (refund semantics).
	SignPreserve SignPolicy = "preserve"
)

// Pipeline holds the parsing and mapping options for a reconciliation run.
// Loaded from a YAML file; every field has a working default so the file is
// optional.
type Pipeline struct {
	// DateFormats are Go time layouts tried in order; the first successful
	// parse wins.
	DateFormats []string `yaml:"date_formats"`

	// ColumnSynonyms maps a canonical field name to extra accepted column
	// headers. Merged over the built-in synonym table; matching is
	// case-insensitive.
	ColumnSynonyms map[string][]string `yaml:"column_synonyms"`

	// AmountSignPolicy is "absolute" (default) or "preserve".
	AmountSignPolicy SignPolicy `yaml:"amount_sign_policy"`

	// ChartFile is a default chart-of-accounts source for the CLI.
	ChartFile string `yaml:"chart_file"`

	CSV CSVSettings `yaml:"csv"`
}

// CSVSettings configures the delimited-file reader.
type CSVSettings struct {
	// Delimiter accepts a literal character or the names "tab", "pipe",
	// "semicolon". Empty means comma.
	Delimiter string `yaml:"delimiter"`
}

// DefaultPipeline returns the built-in pipeline options.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		DateFormats: []string{
			"2006-01-02",
			"01/02/2006",
			"02/01/2006",
			"2006/01/02",
			"Jan 2, 2006",
			"2006-01-02 15:04:05",
		},
		AmountSignPolicy: SignAbsolute,
	}
}

// LoadPipeline reads pipeline options from a YAML file, merged over the
// defaults. An empty path returns the defaults.
func LoadPipeline(path string) (*Pipeline, error) {
	p := DefaultPipeline()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	var overlay Pipeline
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}

	if len(overlay.DateFormats) > 0 {
		p.DateFormats = overlay.DateFormats
	}
	if len(overlay.ColumnSynonyms) > 0 {
		p.ColumnSynonyms = overlay.ColumnSynonyms
	}
	if overlay.AmountSignPolicy != "" {
		p.AmountSignPolicy = overlay.AmountSignPolicy
	}
	if overlay.ChartFile != "" {
		p.ChartFile = overlay.ChartFile
	}
	if overlay.CSV.Delimiter != "" {
		p.CSV.Delimiter = overlay.CSV.Delimiter
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks option values that cannot be defaulted away.
func (p *Pipeline) Validate() error {
	switch p.AmountSignPolicy {
	case SignAbsolute, SignPreserve:
	default:
		return fmt.Errorf("pipeline config: amount_sign_policy must be %q or %q, got %q",
			SignAbsolute, SignPreserve, p.AmountSignPolicy)
	}
	if len(p.DateFormats) == 0 {
		return fmt.Errorf("pipeline config: date_formats must not be empty")
	}
	return nil
}
