package mapping

import (
	"silvereye/apperr"
	"silvereye/models"
)

// Table ist ein unveränderlicher Schnappschuss der Mapping-Tabelle.
// Nach newTable wird nichts mehr verändert; Lesen aus mehreren Goroutinen ist sicher.
type Table struct {
	rows []models.MappingRow
	byNT map[models.NoticeType]*view
}

type view struct {
	rows     []models.MappingRow
	headers  []string
	required []models.MappingRow
	toURI    map[string]string
	toHeader map[string]string
	uris     map[string]bool
}

func newTable(rows []models.MappingRow) (*Table, error) {
	const op = "mapping.validate"

	uris := make(map[string]bool, len(rows))
	headerURI := make(map[string]string, len(rows))
	for i, r := range rows {
		if r.URI == "" {
			return nil, apperr.Configuration(op, "row %d: empty uri", i+1)
		}
		uris[r.URI] = true
		if r.Required && r.CSVHeader == "" {
			return nil, apperr.Configuration(op, "row %d (%s): required field without csv_header", i+1, r.URI)
		}
		if r.CSVHeader == "" {
			continue
		}
		if prev, ok := headerURI[r.CSVHeader]; ok && prev != r.URI {
			return nil, apperr.Configuration(op, "csv_header %q maps to both %s and %s", r.CSVHeader, prev, r.URI)
		}
		headerURI[r.CSVHeader] = r.URI
	}

	// Referenzen dürfen als csv_header oder uri angegeben sein; intern immer uri.
	resolved := make([]models.MappingRow, len(rows))
	for i, r := range rows {
		if r.Reference != "" && !uris[r.Reference] {
			uri, ok := headerURI[r.Reference]
			if !ok {
				return nil, apperr.Configuration(op, "row %d (%s): unknown reference %q", i+1, r.URI, r.Reference)
			}
			r.Reference = uri
		}
		if r.Reference == r.URI && r.Reference != "" {
			return nil, apperr.Configuration(op, "row %d (%s): references itself", i+1, r.URI)
		}
		resolved[i] = r
	}

	t := &Table{rows: resolved, byNT: make(map[models.NoticeType]*view, len(models.NoticeTypes))}
	for _, nt := range models.NoticeTypes {
		v := &view{
			toURI:    map[string]string{},
			toHeader: map[string]string{},
			uris:     map[string]bool{},
		}
		for _, r := range resolved {
			if !r.AppliesTo(nt) {
				continue
			}
			if v.uris[r.URI] {
				return nil, apperr.Configuration(op, "duplicate uri %s for notice type %s", r.URI, nt)
			}
			v.uris[r.URI] = true
			v.rows = append(v.rows, r)
			if r.CSVHeader == "" {
				continue
			}
			if _, dup := v.toURI[r.CSVHeader]; dup {
				return nil, apperr.Configuration(op, "duplicate csv_header %q for notice type %s", r.CSVHeader, nt)
			}
			v.toURI[r.CSVHeader] = r.URI
			v.toHeader[r.URI] = r.CSVHeader
			v.headers = append(v.headers, r.CSVHeader)
			if r.Required {
				v.required = append(v.required, r)
			}
		}
		t.byNT[nt] = v
	}
	return t, nil
}

func (t *Table) view(nt models.NoticeType) *view {
	if v, ok := t.byNT[nt]; ok {
		return v
	}
	return &view{}
}

// Rows liefert alle Zeilen in Dateireihenfolge.
func (t *Table) Rows() []models.MappingRow {
	return append([]models.MappingRow(nil), t.rows...)
}

// RowsForNoticeType liefert alle Zeilen, deren Flag für nt gesetzt ist.
func (t *Table) RowsForNoticeType(nt models.NoticeType) []models.MappingRow {
	return append([]models.MappingRow(nil), t.view(nt).rows...)
}

// SimpleCSVRowsForNoticeType liefert nur Zeilen mit csv_header, also Felder der einfachen CSV.
func (t *Table) SimpleCSVRowsForNoticeType(nt models.NoticeType) []models.MappingRow {
	var out []models.MappingRow
	for _, r := range t.view(nt).rows {
		if r.CSVHeader != "" {
			out = append(out, r)
		}
	}
	return out
}

// RequiredRowsForNoticeType liefert die Pflichtfelder für nt.
func (t *Table) RequiredRowsForNoticeType(nt models.NoticeType) []models.MappingRow {
	return append([]models.MappingRow(nil), t.view(nt).required...)
}

// HeadersForNoticeType liefert die deklarierten Spalten der einfachen CSV.
func (t *Table) HeadersForNoticeType(nt models.NoticeType) []string {
	return append([]string(nil), t.view(nt).headers...)
}

// URIForHeader löst einen csv_header innerhalb von nt auf.
func (t *Table) URIForHeader(nt models.NoticeType, header string) (string, bool) {
	uri, ok := t.view(nt).toURI[header]
	return uri, ok
}

// HeaderForURI ist die Umkehrung von URIForHeader.
func (t *Table) HeaderForURI(nt models.NoticeType, uri string) (string, bool) {
	h, ok := t.view(nt).toHeader[uri]
	return h, ok
}

// HasURI meldet, ob uri für nt deklariert ist.
func (t *Table) HasURI(nt models.NoticeType, uri string) bool {
	return t.view(nt).uris[uri]
}
