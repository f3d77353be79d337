package providers

import "context"

// Source ist das Interface, das jede Quelle für Einreichungen (z.B. Google Sheets, S3) implementieren muss.
type Source interface {
	// Fetch holt die Rohdaten einer Einreichung anhand einer quellspezifischen Referenz (URL, Objekt-Key).
	Fetch(ctx context.Context, ref string) ([]byte, error)

	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "gsheet").
	Name() string
}
