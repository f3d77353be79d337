package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"silvereye/apperr"
	"silvereye/config"
	"silvereye/mapping"
	"silvereye/models"
	"silvereye/parser"
)

// ConversionResult ist das Ergebnis einer Umwandlung in OCDS-Pfad-Spalten.
type ConversionResult struct {
	NoticeType models.NoticeType
	Encoding   string
	Frame      *models.Frame
	BaseJSON   models.BaseJSON
}

// UnflattenInput beschreibt ein vorbereitetes Upload-Verzeichnis für den Unflatten-Schritt.
type UnflattenInput struct {
	Options    UnflattenOptions
	Conversion *ConversionResult
}

// Converter orchestriert Einlesen, Mapping, Coverage und die Vorbereitung für Unflatten.
type Converter struct {
	Config      *config.Config
	Mappings    *mapping.Store
	Unflattener Unflattener
	Logger      *zap.Logger
	now         func() time.Time
}

// NewConverter erstellt eine neue Instanz des Converter. unflattener darf nil sein.
func NewConverter(cfg *config.Config, mappings *mapping.Store, unflattener Unflattener, logger *zap.Logger) *Converter {
	return &Converter{
		Config:      cfg,
		Mappings:    mappings,
		Unflattener: unflattener,
		Logger:      logger,
		now:         time.Now,
	}
}

func (c *Converter) table() (*mapping.Table, error) {
	t := c.Mappings.Current()
	if t == nil {
		return nil, apperr.Configuration("services.Converter", "no mapping table loaded")
	}
	return t, nil
}

// Mapper liefert einen Mapper für nt oder, falls nt leer ist, für den aus frame erkannten Typ.
func (c *Converter) Mapper(frame *models.Frame, nt models.NoticeType) (*CSVMapper, error) {
	table, err := c.table()
	if err != nil {
		return nil, err
	}
	opts := MapperOptions{OCIDPrefix: c.Config.OCIDPrefix, Logger: c.Logger}
	if nt == "" {
		return NewDetectedCSVMapper(table, frame, opts)
	}
	return NewCSVMapper(table, nt, opts)
}

// DefaultBaseJSON liefert das Sidecar aus den konfigurierten Herausgeberdaten.
func (c *Converter) DefaultBaseJSON() models.BaseJSON {
	return NewBaseJSON(models.Publisher{
		Name:   c.Config.PublisherName,
		Scheme: c.Config.PublisherScheme,
		UID:    c.Config.PublisherID,
	}, c.Config.PackageURI, c.now())
}

// ConvertUpload wandelt eine einfache CSV im Speicher in OCDS-Pfad-Spalten um.
func (c *Converter) ConvertUpload(data []byte, nt models.NoticeType) (*ConversionResult, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return c.convertFrame(res, nt)
}

func (c *Converter) convertFrame(res *parser.Result, nt models.NoticeType) (*ConversionResult, error) {
	mapper, err := c.Mapper(res.Frame, nt)
	if err != nil {
		return nil, err
	}
	out, err := mapper.ConvertFrame(res.Frame)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("Einfache CSV umgewandelt",
		zap.String("notice_type", mapper.NoticeType().String()),
		zap.String("encoding", res.Encoding),
		zap.Int("records", out.Len()),
		zap.Int("columns", len(out.Columns)))
	return &ConversionResult{
		NoticeType: mapper.NoticeType(),
		Encoding:   res.Encoding,
		Frame:      out,
		BaseJSON:   c.DefaultBaseJSON(),
	}, nil
}

// ConvertSimpleCSVToOCDS liest die CSV unter path, wandelt sie um und schreibt sie an dieselbe Stelle zurück.
func (c *Converter) ConvertSimpleCSVToOCDS(path string, nt models.NoticeType) (*ConversionResult, error) {
	res, err := parser.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result, err := c.convertFrame(res, nt)
	if err != nil {
		return nil, err
	}
	if err := parser.WriteFile(path, result.Frame); err != nil {
		return nil, fmt.Errorf("write converted csv: %w", err)
	}
	return result, nil
}

// ConvertContractsFinder wandelt einen Contracts-Finder-Tagesexport um. Ist nt leer, wird der Typ
// aus den Exportspalten erkannt. Das Sidecar wird aus den Releases abgeleitet statt aus der Konfiguration.
func (c *Converter) ConvertContractsFinder(data []byte, nt models.NoticeType) (*ConversionResult, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	table, err := c.table()
	if err != nil {
		return nil, err
	}
	if nt == "" {
		if nt, err = DetectContractsFinderNoticeType(table, res.Frame.Columns); err != nil {
			return nil, err
		}
	}
	mapper, err := NewCSVMapper(table, nt, MapperOptions{OCIDPrefix: c.Config.OCIDPrefix, Logger: c.Logger})
	if err != nil {
		return nil, err
	}
	renamed, err := mapper.ConvertContractsFinder(res.Frame)
	if err != nil {
		return nil, err
	}
	out, err := mapper.Augment(renamed)
	if err != nil {
		return nil, err
	}
	base, err := PrepareBaseJSON(out, c.Config.PackageURI)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("Contracts-Finder-Export umgewandelt",
		zap.String("notice_type", nt.String()),
		zap.Int("records", out.Len()))
	return &ConversionResult{NoticeType: nt, Encoding: res.Encoding, Frame: out, BaseJSON: base}, nil
}

// Coverage liest eine einfache CSV und berechnet ihren Abdeckungsbericht.
func (c *Converter) Coverage(data []byte, nt models.NoticeType) (*models.CoverageReport, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	mapper, err := c.Mapper(res.Frame, nt)
	if err != nil {
		return nil, err
	}
	report, err := mapper.Coverage(res.Frame)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("Feldabdeckung berechnet",
		zap.String("notice_type", report.NoticeType.String()),
		zap.Float64("average_field_completion", report.AverageFieldCompletion),
		zap.Int("required_fields_missing", len(report.RequiredFieldsMissing)))
	return report, nil
}

// PrepareUnflattenInput legt unter uploadDir das Verzeichnis an, das flatten-tool erwartet:
// csv_dir/<root_list_path>.csv mit OCDS-Pfad-Spalten plus base.json.
func (c *Converter) PrepareUnflattenInput(uploadDir, srcPath string, nt models.NoticeType) (*UnflattenInput, error) {
	inputDir := filepath.Join(uploadDir, "csv_dir")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return nil, err
	}
	dest := filepath.Join(inputDir, c.Config.RootListPath+".csv")
	if err := copyFile(srcPath, dest); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}

	conv, err := c.ConvertSimpleCSVToOCDS(dest, nt)
	if err != nil {
		return nil, err
	}

	basePath := filepath.Join(uploadDir, "base.json")
	if err := WriteBaseJSON(basePath, conv.BaseJSON); err != nil {
		return nil, fmt.Errorf("write base json: %w", err)
	}

	return &UnflattenInput{
		Options: UnflattenOptions{
			InputDir:     inputDir,
			OutputPath:   filepath.Join(uploadDir, "unflattened.json"),
			BaseJSONPath: basePath,
			RootListPath: c.Config.RootListPath,
			RootID:       "ocid",
			Schema:       c.Config.OCDSSchemaURL,
			// Die umgewandelte Datei wird immer als UTF-8 geschrieben
			Encoding: parser.EncodingUTF8,
		},
		Conversion: conv,
	}, nil
}

// Unflatten bereitet das Upload-Verzeichnis vor und ruft den externen Unflattener auf.
func (c *Converter) Unflatten(ctx context.Context, uploadDir, srcPath string, nt models.NoticeType) (*UnflattenInput, error) {
	if c.Unflattener == nil {
		return nil, fmt.Errorf("unflatten is not configured")
	}
	in, err := c.PrepareUnflattenInput(uploadDir, srcPath, nt)
	if err != nil {
		return nil, err
	}
	if err := c.Unflattener.Unflatten(ctx, in.Options); err != nil {
		return nil, err
	}
	return in, nil
}

// CreateSimpleCSVTemplate schreibt die leere Vorlage für nt.
func (c *Converter) CreateSimpleCSVTemplate(w io.Writer, nt models.NoticeType) error {
	table, err := c.table()
	if err != nil {
		return err
	}
	mapper, err := NewCSVMapper(table, nt, MapperOptions{OCIDPrefix: c.Config.OCIDPrefix, Logger: c.Logger})
	if err != nil {
		return err
	}
	return mapper.WriteTemplate(w)
}

// CreateTemplates schreibt <typ>_template.csv für alle Notice-Typen nach dir.
func (c *Converter) CreateTemplates(dir string) (map[models.NoticeType][]byte, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out := make(map[models.NoticeType][]byte, len(models.NoticeTypes))
	for _, nt := range models.NoticeTypes {
		var buf bytes.Buffer
		if err := c.CreateSimpleCSVTemplate(&buf, nt); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, TemplateFileName(nt)), buf.Bytes(), 0o644); err != nil {
			return nil, err
		}
		out[nt] = buf.Bytes()
	}
	return out, nil
}

// TemplateFileName liefert den Dateinamen der Vorlage für nt.
func TemplateFileName(nt models.NoticeType) string {
	return nt.String() + "_template.csv"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
