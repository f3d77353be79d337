package models

// MappingRow beschreibt ein Feld der Mapping-Tabelle.
type MappingRow struct {
	// Leer bei reinen OCDS-Feldern wie ocid oder tag
	CSVHeader string `json:"csv_header,omitempty"`
	URI       string `json:"uri"`

	Tender bool `json:"tender_csv"`
	Award  bool `json:"award_csv"`
	Spend  bool `json:"spend_csv"`

	Required  bool   `json:"required"`
	Default   string `json:"default,omitempty"`
	Reference string `json:"reference,omitempty"`

	ContractsFinderPath string `json:"contracts_finder_daily_csv_path,omitempty"`
}

// AppliesTo meldet, ob die Zeile zum Notice-Typ gehört.
func (r MappingRow) AppliesTo(nt NoticeType) bool {
	switch nt {
	case NoticeTender:
		return r.Tender
	case NoticeAward:
		return r.Award
	case NoticeSpend:
		return r.Spend
	}
	return false
}
