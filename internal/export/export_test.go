package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	assert.Equal(t, "2001-03-04", Convert(Date(civil.Date{Year: 2001, Month: 3, Day: 4})))
	assert.Equal(t, "2024-05-06T07:08:09Z", Convert(Timestamp(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))))
	assert.Equal(t, 1.25, Convert(Duration(30*time.Hour)))
	assert.Equal(t, 12.5, Convert(Decimal("12.50")))
	assert.Equal(t, "n/a", Convert(Decimal("n/a")))
	assert.Equal(t, int64(3), Convert(Plain(int64(3))))
	assert.Nil(t, Convert(Plain(nil)))
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(Plain(nil)))
	assert.Equal(t, "true", Text(Plain(true)))
	assert.Equal(t, "42", Text(Plain(42)))
	assert.Equal(t, "1.25", Text(Duration(30*time.Hour)))
	assert.Equal(t, "20", Text(Decimal("20.0000")))
	assert.Equal(t, "1e-7", Text(Plain(1e-7)))
	assert.Equal(t, "1e+21", Text(Plain(1e21)))
}

func TestFromDriver(t *testing.T) {
	ts := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, KindDate, FromDriver(ts, "date").Kind())
	assert.Equal(t, KindTimestamp, FromDriver(ts, "TIMESTAMPTZ").Kind())
	assert.Equal(t, KindDecimal, FromDriver("19.5000", "NUMERIC").Kind())
	assert.Equal(t, KindDecimal, FromDriver([]byte("3"), "DECIMAL").Kind())
	assert.Equal(t, KindPlain, FromDriver("Room #1", "TEXT").Kind())
	assert.Equal(t, "Room #1", Convert(FromDriver([]byte("Room #1"), "VARCHAR")))
}

func TestJSONDurationAsFractionalDays(t *testing.T) {
	r := Result{Single("meta", Record{}.With("span", 30*time.Hour))}

	data, err := Encode(JSONFormat, r)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"meta\": {\n    \"span\": 1.25\n  }\n}\n", string(data))
}

func TestJSONKeepsOrderAndDoesNotEscape(t *testing.T) {
	r := Result{
		Rows("occupancy", []Record{
			Record{}.With("id", int64(2)).With("name", "Pokój <b>&</b>").With("student_count", int64(0)),
		}),
		Rows("mixed_occupancy", nil),
		Scalar("total", 7),
	}

	data, err := Encode(JSONFormat, r)
	require.NoError(t, err)
	assert.Equal(t, `{
  "occupancy": [
    {
      "id": 2,
      "name": "Pokój <b>&</b>",
      "student_count": 0
    }
  ],
  "mixed_occupancy": [],
  "total": 7
}
`, string(data))
}

func TestXMLRoomsDocument(t *testing.T) {
	r := Result{Rows("rooms", []Record{Record{}.With("id", 1).With("name", "Room #1")})}

	data, err := Encode(XMLFormat, r)
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>
<result>
  <query name="rooms">
    <row>
      <id>1</id>
      <name>Room #1</name>
    </row>
  </query>
</result>
`, string(data))
}

func TestXMLSingleRowAndScalar(t *testing.T) {
	r := Result{
		Single("meta", Record{}.With("inserted_rooms", 2).With("note", nil)),
		Scalar("total", 1.5),
		Rows("empty", nil),
	}

	data, err := Encode(XMLFormat, r)
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>
<result>
  <query name="meta">
    <row>
      <inserted_rooms>2</inserted_rooms>
      <note></note>
    </row>
  </query>
  <query name="total">
    <value>1.5</value>
  </query>
  <query name="empty"></query>
</result>
`, string(data))
}

func TestElementName(t *testing.T) {
	assert.Equal(t, "avg_age", elementName("avg_age"))
	assert.Equal(t, "_1st", elementName("1st"))
	assert.Equal(t, "student_count", elementName("student count"))
	assert.Equal(t, "field", elementName(""))
}

type xmlField struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type xmlDoc struct {
	Queries []struct {
		Name string `xml:"name,attr"`
		Rows []struct {
			Fields []xmlField `xml:",any"`
		} `xml:"row"`
	} `xml:"query"`
}

func jsonText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case json.Number:
		return c.String()
	case bool:
		if c {
			return "true"
		}
		return "false"
	}
	return "?"
}

func TestJSONAndXMLCarrySameData(t *testing.T) {
	rows := []Record{
		Record{}.
			With("id", int64(1)).
			With("name", "Ünïcode").
			With("born", civil.Date{Year: 2000, Month: 2, Day: 29}).
			With("avg_age", Decimal("20.5000")).
			With("span", 36*time.Hour).
			With("at", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)).
			With("tiny", 1e-9).
			With("missing", nil),
	}
	r := Result{Rows("mixed", rows)}

	jsonData, err := Encode(JSONFormat, r)
	require.NoError(t, err)
	xmlData, err := Encode(XMLFormat, r)
	require.NoError(t, err)

	var fromJSON map[string][]map[string]any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&fromJSON))

	var fromXML xmlDoc
	require.NoError(t, xml.Unmarshal(xmlData, &fromXML))
	require.Len(t, fromXML.Queries, 1)
	require.Equal(t, "mixed", fromXML.Queries[0].Name)
	require.Len(t, fromXML.Queries[0].Rows, 1)

	fields := fromXML.Queries[0].Rows[0].Fields
	require.Len(t, fields, len(rows[0]))
	for i, f := range fields {
		assert.Equal(t, rows[0][i].Name, f.XMLName.Local)
		assert.Equal(t, jsonText(fromJSON["mixed"][0][f.XMLName.Local]), f.Text, f.XMLName.Local)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XML ")
	require.NoError(t, err)
	assert.Equal(t, XMLFormat, f)

	_, err = ParseFormat("yaml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = For(Format("csv"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEnsureExt(t *testing.T) {
	assert.Equal(t, "result.json", EnsureExt("result", JSONFormat))
	assert.Equal(t, "result.json", EnsureExt("result.json", JSONFormat))
	assert.Equal(t, "result.JSON", EnsureExt("result.JSON", JSONFormat))
	assert.Equal(t, "result.json.xml", EnsureExt("result.json", XMLFormat))
	assert.Equal(t, "application/xml", XMLFormat.ContentType())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "result.json")
	require.NoError(t, WriteFile(path, JSONFormat, Result{Scalar("ok", true)}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(got))
}
