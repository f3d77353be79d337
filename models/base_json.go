package models

// PublishedDateLayout ist das Zeitformat für publishedDate und Release-Daten.
const PublishedDateLayout = "2006-01-02T15:04:05Z"

// Publisher beschreibt den Herausgeber eines Release-Pakets.
type Publisher struct {
	Name   string `json:"name"`
	Scheme string `json:"scheme"`
	UID    string `json:"uid"`
}

// BaseJSON sind die Paket-Metadaten, die der Unflatten-Schritt als Sidecar erwartet.
type BaseJSON struct {
	Version       string    `json:"version"`
	Publisher     Publisher `json:"publisher"`
	PublishedDate string    `json:"publishedDate"`
	URI           string    `json:"uri"`
}
