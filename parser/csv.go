package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"silvereye/apperr"
	"silvereye/models"
)

// Result ist eine gelesene Tabelle plus erkannte Kodierung.
type Result struct {
	Frame    *models.Frame
	Encoding string
}

// ReadFile liest eine CSV-Datei von der Platte.
func ReadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.DataFormat("parser.ReadFile", "read %s: %w", path, err)
	}
	return Parse(data)
}

// Read liest eine komplette CSV aus r.
func Read(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.DataFormat("parser.Read", "read input: %w", err)
	}
	return Parse(data)
}

// Parse wandelt CSV-Bytes in eine Tabelle. Kurze Zeilen werden mit Leerwerten
// aufgefüllt, Zeilen mit zu vielen Feldern sind ein Formatfehler.
func Parse(data []byte) (*Result, error) {
	decoded, enc, err := DetectAndDecode(data)
	if err != nil {
		return nil, apperr.DataFormat("parser.Parse", "decode input: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.DataFormat("parser.Parse", "empty file: no header row found")
		}
		return nil, apperr.DataFormat("parser.Parse", "read header row: %w", err)
	}

	columns, err := normalizeHeaders(headers)
	if err != nil {
		return nil, err
	}

	frame := models.NewFrame(columns...)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperr.DataFormat("parser.Parse", "%w", err)
		}
		if len(row) > len(columns) {
			return nil, apperr.DataFormat("parser.Parse", "line %d: expected %d fields, saw %d", line, len(columns), len(row))
		}

		record := make(models.Record, len(columns))
		for i, col := range columns {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		frame.Records = append(frame.Records, record)
	}

	return &Result{Frame: frame, Encoding: enc}, nil
}

func normalizeHeaders(headers []string) ([]string, error) {
	seen := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(norm.NFC.String(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[h] {
			return nil, apperr.DataFormat("parser.Parse", "duplicate column %q", h)
		}
		seen[h] = true
		out[i] = h
	}
	return out, nil
}

// Write schreibt die Tabelle als UTF-8-CSV mit Kopfzeile.
func Write(w io.Writer, frame *models.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frame.Columns); err != nil {
		return err
	}
	for i := range frame.Records {
		if err := cw.Write(frame.Row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile schreibt die Tabelle nach path und ersetzt eine vorhandene Datei.
func WriteFile(path string, frame *models.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
