package mapping

import (
	"bytes"
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Loader liefert einen frischen Tabellen-Schnappschuss.
type Loader func(ctx context.Context) (*Table, error)

// Fetcher holt Rohdaten aus einer externen Quelle (z.B. S3).
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Store hält den aktuellen Schnappschuss und tauscht ihn beim Reload atomar aus.
type Store struct {
	load    Loader
	current atomic.Pointer[Table]
	logger  *zap.Logger
}

// NewStore lädt die Tabelle sofort; ein Fehler hier bricht den Start ab.
func NewStore(ctx context.Context, load Loader, logger *zap.Logger) (*Store, error) {
	s := &Store{load: load, logger: logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFileStore lädt die Tabelle aus einer lokalen Datei.
func NewFileStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	return NewStore(ctx, func(context.Context) (*Table, error) { return Load(path) }, logger)
}

// NewFetcherStore lädt die Tabelle über einen Fetcher, z.B. aus einem S3-Objekt.
func NewFetcherStore(ctx context.Context, f Fetcher, ref string, logger *zap.Logger) (*Store, error) {
	return NewStore(ctx, func(ctx context.Context) (*Table, error) {
		data, err := f.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		return Parse(bytes.NewReader(data))
	}, logger)
}

// Current liefert den aktuellen Schnappschuss.
func (s *Store) Current() *Table {
	return s.current.Load()
}

// Reload lädt neu. Bei Fehlern bleibt der bisherige Schnappschuss aktiv.
func (s *Store) Reload(ctx context.Context) error {
	t, err := s.load(ctx)
	if err != nil {
		s.logger.Error("Mapping-Tabelle konnte nicht geladen werden", zap.Error(err))
		return err
	}
	s.current.Store(t)
	s.logger.Info("Mapping-Tabelle geladen", zap.Int("rows", len(t.rows)))
	return nil
}
