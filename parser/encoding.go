package parser

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Namen der erkannten Kodierungen, wie sie an den Unflatten-Schritt weitergegeben werden.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF16   = "utf-16"
	EncodingCP1252  = "cp1252"
	EncodingLatin1  = "latin_1"
)

// cp1252Undefined sind die Bytes, denen Windows-1252 kein Zeichen zuordnet.
var cp1252Undefined = []byte{0x81, 0x8D, 0x8F, 0x90, 0x9D}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectAndDecode erkennt die Kodierung, entfernt ein BOM und liefert UTF-8.
// Reihenfolge: BOM, gültiges UTF-8, Windows-1252 (nur ohne dort undefinierte Bytes),
// zuletzt Latin-1 (dekodiert immer).
func DetectAndDecode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		out, err := decode(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
		if err != nil {
			return nil, "", err
		}
		return out, EncodingUTF16, nil
	case utf8.Valid(data):
		return data, EncodingUTF8, nil
	}

	if !hasUndefinedCP1252(data) {
		if out, err := decode(charmap.Windows1252, data); err == nil {
			return out, EncodingCP1252, nil
		}
	}
	out, err := decode(charmap.ISO8859_1, data)
	if err != nil {
		return nil, "", err
	}
	return out, EncodingLatin1, nil
}

func decode(enc encoding.Encoding, data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	return out, err
}

func hasUndefinedCP1252(data []byte) bool {
	for _, b := range cp1252Undefined {
		if bytes.IndexByte(data, b) >= 0 {
			return true
		}
	}
	return false
}
