package export

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered set of fields; encoders keep the order.
type Record []Field

// With returns r extended by name = Of(x).
func (r Record) With(name string, x any) Record {
	return append(r, Field{Name: name, Value: Of(x)})
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// SectionKind tells which payload a Section carries.
type SectionKind uint8

const (
	SectionRows SectionKind = iota
	SectionRow
	SectionScalar
)

// Section is one top-level entry of a Result.
type Section struct {
	Name  string
	Kind  SectionKind
	Rows  []Record
	Row   Record
	Value Value
}

func Rows(name string, rows []Record) Section {
	return Section{Name: name, Kind: SectionRows, Rows: rows}
}

func Single(name string, row Record) Section {
	return Section{Name: name, Kind: SectionRow, Row: row}
}

func Scalar(name string, x any) Section {
	return Section{Name: name, Kind: SectionScalar, Value: Of(x)}
}

// Result is the ordered mapping of section name to payload.
type Result []Section

// Get returns the first section called name.
func (r Result) Get(name string) (Section, bool) {
	for _, s := range r {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}
