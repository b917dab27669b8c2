package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Formatter writes one command result.
type Formatter interface {
	Format(data any) error
}

// TextRenderer is implemented by results with their own human-readable
// form. Reports, template lists and doctor results all render this way.
type TextRenderer interface {
	RenderText(w io.Writer, styles Styles) error
}

// FormatterOptions configures NewFormatter.
type FormatterOptions struct {
	// Writer defaults to os.Stdout.
	Writer  io.Writer
	NoColor bool
	// Compact drops indentation from JSON output.
	Compact bool
}

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "yaml"}

type printer struct {
	format  string
	w       io.Writer
	styles  Styles
	compact bool
}

// NewFormatter returns the formatter for format. An empty format is text.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if format == "" {
		format = "text"
	}
	if !slices.Contains(Formats, format) {
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}

	var o FormatterOptions
	if opts != nil {
		o = *opts
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}
	p := &printer{format: format, w: o.Writer, compact: o.Compact}
	if format == "text" {
		p.styles = NewStyles(o.Writer, o.NoColor)
	}
	return p, nil
}

func (p *printer) Format(data any) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		if !p.compact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}

	switch v := data.(type) {
	case TextRenderer:
		return v.RenderText(p.w, p.styles)
	case string:
		_, err := fmt.Fprintln(p.w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(p.w, v.String())
		return err
	}
	return fmt.Errorf("text output is not supported for %T, use --format json or yaml", data)
}
