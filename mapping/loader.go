// Package mapping lädt die Mapping-Tabelle zwischen einfacher CSV und OCDS-Pfaden.
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"silvereye/apperr"
	"silvereye/models"
)

// Spaltennamen der Mapping-CSV.
const (
	colCSVHeader       = "csv_header"
	colURI             = "uri"
	colTender          = "tender_csv"
	colAward           = "award_csv"
	colSpend           = "spend_csv"
	colRequired        = "required"
	colDefault         = "default"
	colReference       = "reference"
	colContractsFinder = "contracts_finder_daily_csv_path"
)

var requiredColumns = []string{
	colCSVHeader, colURI, colTender, colAward, colSpend,
	colRequired, colDefault, colReference, colContractsFinder,
}

// Load liest die Mapping-Tabelle aus einer Datei.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Configuration("mapping.Load", "open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse liest und validiert die Mapping-Tabelle. Boolesche Spalten werden hier
// einmalig normalisiert, unbekannte Werte sind ein Konfigurationsfehler.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Configuration("mapping.Parse", "mapping table is empty")
		}
		return nil, apperr.Configuration("mapping.Parse", "read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, apperr.Configuration("mapping.Parse", "missing column %s", col)
		}
	}

	var rows []models.MappingRow
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperr.Configuration("mapping.Parse", "line %d: %w", line, err)
		}
		get := func(col string) string { return strings.TrimSpace(rec[index[col]]) }

		row := models.MappingRow{
			CSVHeader:           get(colCSVHeader),
			URI:                 get(colURI),
			Default:             get(colDefault),
			Reference:           get(colReference),
			ContractsFinderPath: get(colContractsFinder),
		}
		flags := []struct {
			col string
			dst *bool
		}{
			{colTender, &row.Tender},
			{colAward, &row.Award},
			{colSpend, &row.Spend},
			{colRequired, &row.Required},
		}
		for _, fl := range flags {
			b, err := parseBool(get(fl.col))
			if err != nil {
				return nil, apperr.Configuration("mapping.Parse", "line %d column %s: %w", line, fl.col, err)
			}
			*fl.dst = b
		}
		rows = append(rows, row)
	}

	return newTable(rows)
}

// parseBool akzeptiert TRUE/FALSE und 1/0 in beliebiger Schreibweise.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
