package export

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSON writes a Result as a two-space indented object in section order.
// HTML characters and non-ASCII text are written unescaped.
type JSON struct{}

func (JSON) Export(w io.Writer, r Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, s.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		var err error
		switch s.Kind {
		case SectionRows:
			err = writeRows(&buf, s.Rows)
		case SectionRow:
			err = writeRecord(&buf, s.Row)
		default:
			err = writeJSON(&buf, Convert(s.Value))
		}
		if err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeRecord(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(buf *bytes.Buffer, rows []Record) error {
	buf.WriteByte('[')
	for i, rec := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeRecord(buf, rec); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeRecord(buf *bytes.Buffer, r Record) error {
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, f.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSON(buf, Convert(f.Value)); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
