package models

import "time"

// RecordMissing listet fehlende Pflichtfelder eines Datensatzes.
type RecordMissing struct {
	Row      int      `json:"row"`
	NoticeID string   `json:"notice_id"`
	Fields   []string `json:"fields"`
}

// ColumnCount zählt Null-Werte einer Spalte.
type ColumnCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// ColumnPercentage ist der Anteil befüllter Werte einer Spalte in Prozent.
type ColumnPercentage struct {
	Column     string  `json:"column"`
	Percentage float64 `json:"percentage"`
}

// CoverageReport ist das Ergebnis einer Feldabdeckungsprüfung.
type CoverageReport struct {
	NoticeType                NoticeType         `json:"notice_type"`
	ExpectedFields            int                `json:"expected_fields"`
	RequiredFieldsMissing     []string           `json:"required_fields_missing"`
	MissingByRecord           []RecordMissing    `json:"required_fields_missing_by_record"`
	FieldCompletionPercentage []ColumnPercentage `json:"field_completion_percentage"`
	CountsMissingFields       []ColumnCount      `json:"counts_missing_fields"`
	CompletedFieldsCounts     []int              `json:"completed_fields_counts"`
	AverageFieldCompletion    float64            `json:"average_field_completion"`
	MinimumFieldCompletion    int                `json:"minimum_field_completion"`
	MaximumFieldCompletion    int                `json:"maximum_field_completion"`
}

// FieldCoverage speichert die durchschnittliche Feldabdeckung einer Einreichung.
type FieldCoverage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SubmissionID string     `json:"submission_id" gorm:"uniqueIndex;not null"`
	NoticeType   NoticeType `json:"notice_type" gorm:"index"`

	// Nur die Spalte des erkannten Typs wird gesetzt
	TendersFieldCoverage *float64 `json:"tenders_field_coverage,omitempty"`
	AwardsFieldCoverage  *float64 `json:"awards_field_coverage,omitempty"`
	SpendFieldCoverage   *float64 `json:"spend_field_coverage,omitempty"`

	ExpectedFields  int `json:"expected_fields"`
	RequiredMissing int `json:"required_missing"`
	Records         int `json:"records"`
}

// NewFieldCoverage leitet den Speicher-Datensatz aus einem Report ab.
func NewFieldCoverage(submissionID string, report *CoverageReport) *FieldCoverage {
	avg := report.AverageFieldCompletion
	fc := &FieldCoverage{
		SubmissionID:    submissionID,
		NoticeType:      report.NoticeType,
		ExpectedFields:  report.ExpectedFields,
		RequiredMissing: len(report.RequiredFieldsMissing),
		Records:         len(report.CompletedFieldsCounts),
	}
	switch report.NoticeType {
	case NoticeTender:
		fc.TendersFieldCoverage = &avg
	case NoticeAward:
		fc.AwardsFieldCoverage = &avg
	case NoticeSpend:
		fc.SpendFieldCoverage = &avg
	}
	return fc
}
