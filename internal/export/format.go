package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BartekS5/roomstat/internal/storage"
)

// ErrUnknownFormat is returned for format names other than json and xml.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an output document format.
type Format string

const (
	JSONFormat Format = "json"
	XMLFormat  Format = "xml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case JSONFormat:
		return JSONFormat, nil
	case XMLFormat:
		return XMLFormat, nil
	default:
		return "", fmt.Errorf("%w: %q (expected json or xml)", ErrUnknownFormat, s)
	}
}

// Ext is the conventional file extension, dot included.
func (f Format) Ext() string { return "." + string(f) }

func (f Format) ContentType() string {
	if f == XMLFormat {
		return "application/xml"
	}
	return "application/json"
}

// EnsureExt appends f's extension to name unless it already ends with it.
func EnsureExt(name string, f Format) string {
	if strings.EqualFold(filepath.Ext(name), f.Ext()) {
		return name
	}
	return name + f.Ext()
}

// Exporter writes a Result as one document.
type Exporter interface {
	Export(w io.Writer, r Result) error
}

// For returns the exporter of format f.
func For(f Format) (Exporter, error) {
	switch f {
	case JSONFormat:
		return JSON{}, nil
	case XMLFormat:
		return XML{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Encode renders r in format f.
func Encode(f Format, r Result) ([]byte, error) {
	exp, err := For(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := exp.Export(&buf, r); err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders r in format f and atomically replaces the file at path.
func WriteFile(path string, f Format, r Result) error {
	data, err := Encode(f, r)
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data)
}
