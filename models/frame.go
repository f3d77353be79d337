package models

import "strings"

// Record ist eine Zeile einer Notice-CSV (Spaltenname -> Wert).
type Record map[string]string

// IsNull meldet, ob die Spalte fehlt oder nur Leerraum enthält.
func (r Record) IsNull(col string) bool {
	v, ok := r[col]
	return !ok || strings.TrimSpace(v) == ""
}

// Value liefert den Wert und ob er nicht null ist.
func (r Record) Value(col string) (string, bool) {
	if r.IsNull(col) {
		return "", false
	}
	return r[col], true
}

// Clone kopiert den Datensatz.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Frame ist eine Tabelle mit geordneten Spalten.
type Frame struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// NewFrame erzeugt eine leere Tabelle mit den gegebenen Spalten.
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: append([]string(nil), columns...)}
}

// Len liefert die Anzahl der Datensätze.
func (f *Frame) Len() int { return len(f.Records) }

// HasColumn meldet, ob die Spalte existiert.
func (f *Frame) HasColumn(col string) bool {
	return f.ColumnIndex(col) >= 0
}

// ColumnIndex liefert die Position der Spalte oder -1.
func (f *Frame) ColumnIndex(col string) int {
	for i, c := range f.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// AddColumn hängt eine Spalte an, falls sie noch nicht existiert.
func (f *Frame) AddColumn(col string) {
	if !f.HasColumn(col) {
		f.Columns = append(f.Columns, col)
	}
}

// Clone kopiert Spalten und Datensätze tief.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Columns: append([]string(nil), f.Columns...),
		Records: make([]Record, len(f.Records)),
	}
	for i, r := range f.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// Row liefert die Werte eines Datensatzes in Spaltenreihenfolge.
func (f *Frame) Row(i int) []string {
	row := make([]string, len(f.Columns))
	for j, c := range f.Columns {
		row[j] = f.Records[i][c]
	}
	return row
}
