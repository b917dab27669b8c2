package log

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format represents the output format for logs
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses "text" (or "console") and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// Config holds configuration for the logger
type Config struct {
	Level  Level
	Format Format
	// Output defaults to stderr so logs never mix with task stdout or reports.
	Output    io.Writer
	AddSource bool

	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs warnings and errors as text to stderr.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		Output:         os.Stderr,
		ServiceName:    "jobbook",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig logs everything with source locations.
func DevelopmentConfig() Config {
	c := DefaultConfig()
	c.Level = LevelDebug
	c.AddSource = true
	return c
}

// ProductionConfig logs info and above as JSON, for log shippers.
func ProductionConfig() Config {
	c := DefaultConfig()
	c.Level = LevelInfo
	c.Format = FormatJSON
	return c
}
