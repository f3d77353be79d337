package services

import (
	"encoding/json"
	"os"
	"time"

	"silvereye/apperr"
	"silvereye/models"
)

const ocdsVersion = "1.1"

// NewBaseJSON baut das Sidecar aus konfigurierten Herausgeberdaten.
func NewBaseJSON(publisher models.Publisher, packageURI string, published time.Time) models.BaseJSON {
	return models.BaseJSON{
		Version:       ocdsVersion,
		Publisher:     publisher,
		PublishedDate: published.UTC().Format(models.PublishedDateLayout),
		URI:           packageURI,
	}
}

// PrepareBaseJSON leitet das Sidecar aus einer Tabelle mit OCDS-Pfaden ab: Herausgeber aus dem
// ersten Datensatz, publishedDate als spätestes Release-Datum.
func PrepareBaseJSON(frame *models.Frame, packageURI string) (models.BaseJSON, error) {
	const op = "services.PrepareBaseJSON"
	if frame.Len() == 0 {
		return models.BaseJSON{}, apperr.EmptyInput(op, "no releases to derive package metadata from")
	}

	var latest time.Time
	for i, rec := range frame.Records {
		v, ok := rec.Value("date")
		if !ok {
			continue
		}
		ts, err := time.Parse(models.PublishedDateLayout, v)
		if err != nil {
			return models.BaseJSON{}, apperr.DataFormat(op, "row %d: date %q is not YYYY-MM-DDTHH:MM:SSZ", i+1, v)
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return models.BaseJSON{}, apperr.DataFormat(op, "no release carries a date")
	}

	first := frame.Records[0]
	return NewBaseJSON(models.Publisher{
		Name:   first["buyer/name"],
		Scheme: first["buyer/identifier/scheme"],
		UID:    first["buyer/identifier/id"],
	}, packageURI, latest), nil
}

// WriteBaseJSON schreibt das Sidecar eingerückt nach path.
func WriteBaseJSON(path string, base models.BaseJSON) error {
	data, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
