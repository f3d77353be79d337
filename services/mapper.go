package services

import (
	"encoding/csv"
	"io"
	"strings"

	"go.uber.org/zap"

	"silvereye/apperr"
	"silvereye/mapping"
	"silvereye/models"
)

// DefaultOCIDPrefix wird verwendet, wenn keine Präfix-Konfiguration vorliegt.
const DefaultOCIDPrefix = "ocds-testprefix-"

// contractsFinderPrefix wird aus den IDs der Contracts-Finder-Exporte entfernt.
const contractsFinderPrefix = "ocds-b5fd17-"

// MapperOptions steuern die ID-Synthese und das Logging des Mappers.
type MapperOptions struct {
	OCIDPrefix string
	Logger     *zap.Logger
}

// CSVMapper transformiert Spalten zwischen einfacher CSV und OCDS-Pfaden für genau einen Notice-Typ.
// Ein Mapper ohne Notice-Typ lässt sich nicht erzeugen.
type CSVMapper struct {
	table      *mapping.Table
	noticeType models.NoticeType
	ocidPrefix string
	logger     *zap.Logger
}

// NewCSVMapper erzeugt einen Mapper für einen explizit bekannten Notice-Typ.
func NewCSVMapper(table *mapping.Table, nt models.NoticeType, opts MapperOptions) (*CSVMapper, error) {
	if table == nil {
		return nil, apperr.Configuration("services.NewCSVMapper", "no mapping table loaded")
	}
	if !nt.Valid() {
		return nil, apperr.UnknownNoticeType("services.NewCSVMapper", "unsupported notice type %q", nt)
	}
	if opts.OCIDPrefix == "" {
		opts.OCIDPrefix = DefaultOCIDPrefix
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &CSVMapper{
		table:      table,
		noticeType: nt,
		ocidPrefix: opts.OCIDPrefix,
		logger:     opts.Logger.With(zap.String("notice_type", nt.String())),
	}, nil
}

// NewDetectedCSVMapper erkennt den Notice-Typ aus den Spalten von frame und erzeugt dann den Mapper.
func NewDetectedCSVMapper(table *mapping.Table, frame *models.Frame, opts MapperOptions) (*CSVMapper, error) {
	nt, err := DetectNoticeType(frame.Columns)
	if err != nil {
		return nil, err
	}
	return NewCSVMapper(table, nt, opts)
}

// NoticeType liefert den Typ, auf den der Mapper festgelegt ist.
func (m *CSVMapper) NoticeType() models.NoticeType { return m.noticeType }

// RenameFriendlyToOCDS benennt bekannte csv_header in ihre uri um und verwirft unbekannte Spalten.
// Spalten, die bereits eine bekannte uri tragen, bleiben erhalten; zweimaliges Anwenden ändert nichts.
func (m *CSVMapper) RenameFriendlyToOCDS(frame *models.Frame) (*models.Frame, error) {
	renames := make(map[string]string, len(frame.Columns))
	out := models.NewFrame()
	var dropped []string
	for _, col := range frame.Columns {
		target, ok := m.table.URIForHeader(m.noticeType, col)
		if !ok && m.table.HasURI(m.noticeType, col) {
			target, ok = col, true
		}
		if !ok {
			dropped = append(dropped, col)
			continue
		}
		if out.HasColumn(target) {
			return nil, apperr.DataFormat("services.RenameFriendlyToOCDS", "columns resolve to the same field %s", target)
		}
		renames[col] = target
		out.Columns = append(out.Columns, target)
	}
	if len(dropped) > 0 {
		m.logger.Debug("Unbekannte Spalten verworfen", zap.Strings("columns", dropped))
	}

	out.Records = make([]models.Record, len(frame.Records))
	for i, rec := range frame.Records {
		nr := make(models.Record, len(renames))
		for from, to := range renames {
			if v, ok := rec[from]; ok {
				nr[to] = v
			}
		}
		out.Records[i] = nr
	}
	return out, nil
}

// Augment ergänzt Default- und Referenzwerte und erzeugt ocid und tag.
// Vorhandene Werte werden nie überschrieben; eine Referenz hat Vorrang vor dem Default.
func (m *CSVMapper) Augment(frame *models.Frame) (*models.Frame, error) {
	if !frame.HasColumn("id") {
		return nil, apperr.DataFormat("services.Augment", "missing id column, cannot build ocid")
	}
	out := frame.Clone()

	for _, row := range m.table.RowsForNoticeType(m.noticeType) {
		hasRef := row.Reference != "" && out.HasColumn(row.Reference)
		if row.Default == "" && !hasRef {
			continue
		}
		filled := 0
		for _, rec := range out.Records {
			if !rec.IsNull(row.URI) {
				continue
			}
			if hasRef {
				if v, ok := rec.Value(row.Reference); ok {
					rec[row.URI] = v
					filled++
					continue
				}
			}
			if row.Default != "" {
				rec[row.URI] = row.Default
				filled++
			}
		}
		if filled > 0 || row.Default != "" {
			out.AddColumn(row.URI)
		}
	}

	out.AddColumn("ocid")
	out.AddColumn("tag")
	tag := m.noticeType.ReleaseTag()
	for _, rec := range out.Records {
		if id, ok := rec.Value("id"); ok {
			rec["ocid"] = m.ocidPrefix + strings.TrimSpace(id)
		} else {
			rec["ocid"] = ""
		}
		rec["tag"] = tag
	}
	return out, nil
}

// ConvertFrame führt Umbenennung und Ergänzung hintereinander aus.
func (m *CSVMapper) ConvertFrame(frame *models.Frame) (*models.Frame, error) {
	renamed, err := m.RenameFriendlyToOCDS(frame)
	if err != nil {
		return nil, err
	}
	return m.Augment(renamed)
}

// OutputFriendly bildet uri-Spalten zurück auf csv_header ab und sortiert auf die
// deklarierte Spaltenliste des Typs; fehlende Spalten bleiben leer.
func (m *CSVMapper) OutputFriendly(frame *models.Frame) *models.Frame {
	headers := m.table.HeadersForNoticeType(m.noticeType)
	sources := make(map[string]string, len(headers))
	for _, col := range frame.Columns {
		header, ok := m.table.HeaderForURI(m.noticeType, col)
		if !ok {
			if _, known := m.table.URIForHeader(m.noticeType, col); !known {
				continue
			}
			header = col
		}
		if _, taken := sources[header]; !taken {
			sources[header] = col
		}
	}

	out := models.NewFrame(headers...)
	out.Records = make([]models.Record, len(frame.Records))
	for i, rec := range frame.Records {
		nr := make(models.Record, len(headers))
		for _, h := range headers {
			if src, ok := sources[h]; ok {
				nr[h] = rec[src]
			} else {
				nr[h] = ""
			}
		}
		out.Records[i] = nr
	}
	return out
}

// ConvertContractsFinder übernimmt nur die in contracts_finder_daily_csv_path deklarierten
// Spalten eines Contracts-Finder-Exports, benennt sie in uri um und entfernt das CF-Präfix der IDs.
func (m *CSVMapper) ConvertContractsFinder(frame *models.Frame) (*models.Frame, error) {
	renames := map[string]string{}
	for _, row := range m.table.RowsForNoticeType(m.noticeType) {
		if row.ContractsFinderPath != "" {
			renames[row.ContractsFinderPath] = row.URI
		}
	}

	out := models.NewFrame()
	var kept []string
	for _, col := range frame.Columns {
		if uri, ok := renames[col]; ok {
			out.Columns = append(out.Columns, uri)
			kept = append(kept, col)
		}
	}
	if len(kept) == 0 {
		return nil, apperr.DataFormat("services.ConvertContractsFinder", "no Contracts Finder columns found")
	}

	out.Records = make([]models.Record, len(frame.Records))
	for i, rec := range frame.Records {
		nr := make(models.Record, len(kept))
		for _, col := range kept {
			nr[renames[col]] = rec[col]
		}
		if id, ok := nr["id"]; ok {
			nr["id"] = strings.TrimPrefix(id, contractsFinderPrefix)
		}
		out.Records[i] = nr
	}
	return out, nil
}

// Coverage berechnet den Abdeckungsbericht für den Typ des Mappers.
func (m *CSVMapper) Coverage(frame *models.Frame) (*models.CoverageReport, error) {
	return newCoverageReporter(m.table, m.noticeType).CoverageReport(frame)
}

// WriteTemplate schreibt die leere Vorlage für den Typ des Mappers.
func (m *CSVMapper) WriteTemplate(w io.Writer) error {
	return CreateSimpleCSVTemplate(w, m.table, m.noticeType)
}

// CreateSimpleCSVTemplate schreibt nur die Kopfzeile aller deklarierten Spalten für nt.
func CreateSimpleCSVTemplate(w io.Writer, table *mapping.Table, nt models.NoticeType) error {
	if !nt.Valid() {
		return apperr.UnknownNoticeType("services.CreateSimpleCSVTemplate", "unsupported notice type %q", nt)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(table.HeadersForNoticeType(nt)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
