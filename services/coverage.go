package services

import (
	"sort"

	"silvereye/apperr"
	"silvereye/mapping"
	"silvereye/models"
)

// noticeIDColumns werden in dieser Reihenfolge für die Kennung im Bericht herangezogen.
var noticeIDColumns = []string{"Notice ID", "id"}

const missingNoticeID = "ID missing"

// CoverageReporter berechnet Vollständigkeitskennzahlen für einen Notice-Typ. Zustandslos pro Aufruf.
type CoverageReporter struct {
	noticeType models.NoticeType
	required   []models.MappingRow
}

// NewCoverageReporter erzeugt einen Reporter mit den Pflichtfeldern von nt.
func NewCoverageReporter(table *mapping.Table, nt models.NoticeType) (*CoverageReporter, error) {
	if table == nil {
		return nil, apperr.Configuration("services.NewCoverageReporter", "no mapping table loaded")
	}
	if !nt.Valid() {
		return nil, apperr.UnknownNoticeType("services.NewCoverageReporter", "unsupported notice type %q", nt)
	}
	return newCoverageReporter(table, nt), nil
}

func newCoverageReporter(table *mapping.Table, nt models.NoticeType) *CoverageReporter {
	return &CoverageReporter{noticeType: nt, required: table.RequiredRowsForNoticeType(nt)}
}

// MissingRequiredFields listet die Pflichtfelder in Tabellenreihenfolge, die im Datensatz null sind.
func (c *CoverageReporter) MissingRequiredFields(rec models.Record) []string {
	var missing []string
	for _, r := range c.required {
		if rec.IsNull(r.CSVHeader) {
			missing = append(missing, r.CSVHeader)
		}
	}
	return missing
}

// CoverageReport berechnet den Bericht über alle Datensätze von frame (einfache CSV).
// Gezählt werden alle vorhandenen Spalten, nicht nur Pflichtfelder.
func (c *CoverageReporter) CoverageReport(frame *models.Frame) (*models.CoverageReport, error) {
	n := frame.Len()
	if n == 0 {
		return nil, apperr.EmptyInput("services.CoverageReport", "no records to score")
	}

	report := &models.CoverageReport{
		NoticeType:            c.noticeType,
		ExpectedFields:        len(c.required),
		RequiredFieldsMissing: []string{},
		MissingByRecord:       []models.RecordMissing{},
		CompletedFieldsCounts: make([]int, n),
	}

	nulls := make([]int, len(frame.Columns))
	missingAny := make(map[string]bool)
	for i, rec := range frame.Records {
		completed := 0
		for j, col := range frame.Columns {
			if rec.IsNull(col) {
				nulls[j]++
			} else {
				completed++
			}
		}
		report.CompletedFieldsCounts[i] = completed

		if missing := c.MissingRequiredFields(rec); len(missing) > 0 {
			for _, f := range missing {
				missingAny[f] = true
			}
			report.MissingByRecord = append(report.MissingByRecord, models.RecordMissing{
				Row:      i + 1,
				NoticeID: noticeID(rec),
				Fields:   missing,
			})
		}
	}

	for _, r := range c.required {
		if missingAny[r.CSVHeader] {
			report.RequiredFieldsMissing = append(report.RequiredFieldsMissing, r.CSVHeader)
		}
	}

	report.FieldCompletionPercentage = make([]models.ColumnPercentage, len(frame.Columns))
	report.CountsMissingFields = []models.ColumnCount{}
	for j, col := range frame.Columns {
		report.FieldCompletionPercentage[j] = models.ColumnPercentage{
			Column:     col,
			Percentage: float64(n-nulls[j]) / float64(n) * 100,
		}
		if nulls[j] > 0 {
			report.CountsMissingFields = append(report.CountsMissingFields, models.ColumnCount{Column: col, Count: nulls[j]})
		}
	}
	sort.SliceStable(report.CountsMissingFields, func(a, b int) bool {
		return report.CountsMissingFields[a].Count > report.CountsMissingFields[b].Count
	})

	sum, lo, hi := 0, report.CompletedFieldsCounts[0], report.CompletedFieldsCounts[0]
	for _, v := range report.CompletedFieldsCounts {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	report.AverageFieldCompletion = float64(sum) / float64(n)
	report.MinimumFieldCompletion = lo
	report.MaximumFieldCompletion = hi
	return report, nil
}

func noticeID(rec models.Record) string {
	for _, col := range noticeIDColumns {
		if v, ok := rec.Value(col); ok {
			return v
		}
	}
	return missingNoticeID
}
