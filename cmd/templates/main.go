package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"silvereye/config"
	"silvereye/mapping"
	"silvereye/models"
	"silvereye/services"
	"silvereye/storage"

	"go.uber.org/zap"
)

func main() {
	outDir := flag.String("out", "templates", "Zielverzeichnis für die Vorlagen")
	upload := flag.Bool("upload", true, "Vorlagen in den S3-Bucket hochladen, falls konfiguriert")
	flag.Parse()

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	ctx := context.Background()

	// 1. Mapping-Tabelle laden
	mappings, err := mapping.NewFileStore(ctx, cfg.MappingsPath, logging)
	if err != nil {
		logging.Fatal("Fehler beim Laden der Mapping-Tabelle", zap.String("path", cfg.MappingsPath), zap.Error(err))
	}

	// 2. Vorlagen schreiben
	converter := services.NewConverter(cfg, mappings, nil, logging)
	written, err := converter.CreateTemplates(*outDir)
	if err != nil {
		logging.Fatal("Fehler beim Schreiben der Vorlagen", zap.Error(err))
	}
	for _, nt := range models.NoticeTypes {
		logging.Info("Vorlage geschrieben", zap.String("file", filepath.Join(*outDir, services.TemplateFileName(nt))))
	}

	if !*upload || !cfg.S3Enabled() {
		return
	}

	// 3. Nach S3 hochladen
	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}
	bucket := storage.NewS3Source(s3Client, cfg, logging)
	for _, nt := range models.NoticeTypes {
		name := services.TemplateFileName(nt)
		link, err := bucket.UploadFile(ctx, storage.TemplateKey(name), "text/csv", written[nt])
		if err != nil {
			logging.Fatal("Fehler beim Hochladen nach S3", zap.String("template", name), zap.Error(err))
		}
		logging.Info("Vorlage hochgeladen", zap.String("link", link))
	}
}
