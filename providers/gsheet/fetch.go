package gsheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// maxSheetSize begrenzt die Größe eines heruntergeladenen Exports.
const maxSheetSize = 32 << 20

// Fetcher lädt Google Sheets als CSV-Export herunter.
type Fetcher struct {
	Client *http.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Google-Sheets-Fetcher.
func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{Client: httpClient, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string { return "gsheet" }

// FixURL wandelt einen Bearbeitungslink (…/edit#gid=N) in den CSV-Exportlink um.
// Andere URLs werden unverändert zurückgegeben.
func FixURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Host, "docs.google.com") || !strings.Contains(u.Path, "/spreadsheets/") {
		return raw
	}
	gid := ""
	if strings.HasPrefix(u.Fragment, "gid=") {
		gid = strings.TrimPrefix(u.Fragment, "gid=")
	} else if q := u.Query().Get("gid"); q != "" {
		gid = q
	}

	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 && (strings.HasSuffix(path, "/edit") || strings.HasSuffix(path, "/export")) {
		path = path[:i]
	}
	query := url.Values{"format": {"csv"}}
	if gid != "" {
		query.Set("gid", gid)
	}
	u.Path = path + "/export"
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String()
}

// Fetch lädt das Sheet unter ref als CSV.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target := FixURL(ref)
	log := f.Logger.With(zap.String("url", target))
	log.Debug("Rufe Google-Sheets-Export auf.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = httpClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet export failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSheetSize {
		return nil, fmt.Errorf("sheet export exceeds %d bytes", maxSheetSize)
	}
	log.Info("Google Sheet geladen.", zap.Int("bytes", len(data)))
	return data, nil
}
