package export

import (
	"encoding/xml"
	"io"
	"strings"
	"unicode"
)

// XML writes a Result as
//
//	<result>
//	  <query name="section">
//	    <row><field>text</field></row>
//	  </query>
//	</result>
//
// A single record becomes one row and a scalar a <value> leaf.
type XML struct{}

func (XML) Export(w io.Writer, r Result) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "result"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, s := range r {
		query := xml.StartElement{
			Name: xml.Name{Local: "query"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: s.Name}},
		}
		if err := enc.EncodeToken(query); err != nil {
			return err
		}
		var err error
		switch s.Kind {
		case SectionRows:
			for _, rec := range s.Rows {
				if err = encodeRow(enc, rec); err != nil {
					break
				}
			}
		case SectionRow:
			err = encodeRow(enc, s.Row)
		default:
			err = encodeLeaf(enc, "value", s.Value)
		}
		if err != nil {
			return err
		}
		if err := enc.EncodeToken(query.End()); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeRow(enc *xml.Encoder, rec Record) error {
	row := xml.StartElement{Name: xml.Name{Local: "row"}}
	if err := enc.EncodeToken(row); err != nil {
		return err
	}
	for _, f := range rec {
		if err := encodeLeaf(enc, f.Name, f.Value); err != nil {
			return err
		}
	}
	return enc.EncodeToken(row.End())
}

func encodeLeaf(enc *xml.Encoder, name string, v Value) error {
	el := xml.StartElement{Name: xml.Name{Local: elementName(name)}}
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if text := Text(v); text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(el.End())
}

// elementName maps a field name onto a valid XML element name.
func elementName(name string) string {
	if name == "" {
		return "field"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
			b.WriteRune(r)
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
			b.WriteRune(r)
		case i == 0 && unicode.IsDigit(r):
			b.WriteRune('_')
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
