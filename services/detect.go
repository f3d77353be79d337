package services

import (
	"silvereye/apperr"
	"silvereye/mapping"
	"silvereye/models"
)

// noticeSignals in fester Prüfreihenfolge: Award vor Spend vor Tender.
// Jede Signalspalte wird in einfacher und in OCDS-Pfad-Schreibweise geprüft.
var noticeSignals = []struct {
	noticeType models.NoticeType
	columns    []string
}{
	{models.NoticeAward, []string{"Award Title", "awards/0/title"}},
	{models.NoticeSpend, []string{"Transaction ID", "contracts/0/implementation/transactions/0/id"}},
	{models.NoticeTender, []string{"Tender Title", "tender/title"}},
}

// DetectNoticeType bestimmt den Notice-Typ anhand der Spaltennamen.
func DetectNoticeType(columns []string) (models.NoticeType, error) {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, sig := range noticeSignals {
		for _, c := range sig.columns {
			if present[c] {
				return sig.noticeType, nil
			}
		}
	}
	return "", apperr.UnknownNoticeType("services.DetectNoticeType",
		"we could not identify whether this is a tender, award, or spend notice")
}

// DetectContractsFinderNoticeType erkennt den Typ eines Contracts-Finder-Exports, indem die
// Spalten über contracts_finder_daily_csv_path auf ihre uri abgebildet werden.
func DetectContractsFinderNoticeType(table *mapping.Table, columns []string) (models.NoticeType, error) {
	toURI := map[string]string{}
	for _, row := range table.Rows() {
		if row.ContractsFinderPath != "" {
			toURI[row.ContractsFinderPath] = row.URI
		}
	}
	var uris []string
	for _, col := range columns {
		if uri, ok := toURI[col]; ok {
			uris = append(uris, uri)
		}
	}
	return DetectNoticeType(uris)
}
