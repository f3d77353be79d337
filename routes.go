package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"silvereye/apperr"
	"silvereye/config"
	"silvereye/mapping"
	"silvereye/models"
	"silvereye/parser"
	"silvereye/providers"
	"silvereye/services"
	"silvereye/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxUploadSize begrenzt hochgeladene CSV-Dateien.
const maxUploadSize = 32 << 20

type artifactStore interface {
	UploadFile(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type routerDeps struct {
	Config    *config.Config
	Converter *services.Converter
	Mappings  *mapping.Store
	Coverage  *storage.CoverageRepository // nil ohne Datenbank
	Sheets    providers.Source
	Artifacts artifactStore // nil ohne S3
	Logger    *zap.Logger
}

func setupRouter(d routerDeps) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = maxUploadSize
	router.Use(apiKeyAuthMiddleware(d.Config))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mapping_rows": len(d.Mappings.Current().Rows())})
	})

	setupTemplateRoutes(router, d.Converter, d.Logger)
	setupConvertRoutes(router, d.Config, d.Converter, d.Artifacts, d.Logger)
	setupCoverageRoutes(router, d.Converter, d.Coverage, d.Sheets, d.Logger)
	setupMappingRoutes(router, d.Mappings, d.Logger)
	return router
}

// statusForError bildet Fehlerarten auf HTTP-Status ab.
func statusForError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindDataFormat:
		return http.StatusBadRequest
	case apperr.KindUnknownNoticeType, apperr.KindEmptyInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	failuresCounter.WithLabelValues(kind.String()).Inc()
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("path", c.FullPath()), zap.String("kind", kind.String()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
}

func parseNoticeTypeParam(s string) (models.NoticeType, error) {
	if s == "" {
		return "", nil
	}
	nt, err := models.ParseNoticeType(s)
	if err != nil {
		return "", apperr.UnknownNoticeType("main.parseNoticeTypeParam", "%v", err)
	}
	return nt, nil
}

func readUpload(c *gin.Context) ([]byte, error) {
	const op = "main.readUpload"
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, apperr.DataFormat(op, "multipart field file is required: %w", err)
	}
	if fh.Size > maxUploadSize {
		return nil, apperr.DataFormat(op, "upload exceeds %d bytes", maxUploadSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func setupTemplateRoutes(router *gin.Engine, converter *services.Converter, log *zap.Logger) {
	router.GET("/templates/:notice_type", func(c *gin.Context) {
		nt, err := parseNoticeTypeParam(c.Param("notice_type"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		var buf bytes.Buffer
		if err := converter.CreateSimpleCSVTemplate(&buf, nt); err != nil {
			respondError(c, log, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.TemplateFileName(nt)))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	})
}

func setupConvertRoutes(router *gin.Engine, cfg *config.Config, converter *services.Converter, artifacts artifactStore, log *zap.Logger) {
	rg := router.Group("/convert")

	rg.POST("", func(c *gin.Context) {
		nt, data, submissionID, ok := readConvertRequest(c, log)
		if !ok {
			return
		}
		reqLog := log.With(zap.String("submission_id", submissionID))

		if c.Query("unflatten") == "true" {
			handleUnflatten(c, cfg, converter, submissionID, data, nt, reqLog)
			return
		}

		res, err := converter.ConvertUpload(data, nt)
		if err != nil {
			respondError(c, reqLog, err)
			return
		}
		respondConversion(c, cfg, artifacts, submissionID, res, reqLog)
	})

	// Contracts-Finder-Tagesexport; das Sidecar stammt aus den Releases selbst
	rg.POST("/contracts-finder", func(c *gin.Context) {
		nt, data, submissionID, ok := readConvertRequest(c, log)
		if !ok {
			return
		}
		reqLog := log.With(zap.String("submission_id", submissionID), zap.String("source", "contracts_finder"))

		res, err := converter.ConvertContractsFinder(data, nt)
		if err != nil {
			respondError(c, reqLog, err)
			return
		}
		respondConversion(c, cfg, artifacts, submissionID, res, reqLog)
	})
}

// readConvertRequest liest notice_type, Datei und submission_id. Bei Fehlern ist die Antwort bereits geschrieben.
func readConvertRequest(c *gin.Context, log *zap.Logger) (models.NoticeType, []byte, string, bool) {
	nt, err := parseNoticeTypeParam(c.PostForm("notice_type"))
	if err != nil {
		respondError(c, log, err)
		return "", nil, "", false
	}
	submissionID, err := submissionIDParam(c.PostForm("submission_id"))
	if err != nil {
		respondError(c, log, err)
		return "", nil, "", false
	}
	data, err := readUpload(c)
	if err != nil {
		respondError(c, log, err)
		return "", nil, "", false
	}
	return nt, data, submissionID, true
}

// submissionIDParam prüft eine übergebene submission_id oder erzeugt eine neue.
func submissionIDParam(id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	if err := storage.ValidateSubmissionID(id); err != nil {
		return "", err
	}
	return id, nil
}

func respondConversion(c *gin.Context, cfg *config.Config, artifacts artifactStore, submissionID string, res *services.ConversionResult, log *zap.Logger) {
	conversionsCounter.WithLabelValues(res.NoticeType.String()).Inc()

	var csvBuf bytes.Buffer
	if err := parser.Write(&csvBuf, res.Frame); err != nil {
		respondError(c, log, err)
		return
	}
	if c.Query("format") == "csv" {
		c.Data(http.StatusOK, "text/csv; charset=utf-8", csvBuf.Bytes())
		return
	}

	resp := gin.H{
		"submission_id": submissionID,
		"notice_type":   res.NoticeType,
		"release_tag":   res.NoticeType.ReleaseTag(),
		"encoding":      res.Encoding,
		"columns":       res.Frame.Columns,
		"records":       res.Frame.Records,
		"base_json":     res.BaseJSON,
	}
	if artifacts != nil {
		links, err := uploadArtifacts(c.Request.Context(), artifacts, submissionID, cfg.RootListPath, csvBuf.Bytes(), res.BaseJSON)
		if err != nil {
			log.Error("Artifact upload failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "artifact upload failed"})
			return
		}
		resp["links"] = links
	}
	c.JSON(http.StatusOK, resp)
}

func uploadArtifacts(ctx context.Context, artifacts artifactStore, submissionID, rootListPath string, csvData []byte, base models.BaseJSON) (map[string]string, error) {
	baseData, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return nil, err
	}
	csvLink, err := artifacts.UploadFile(ctx, storage.ArtifactKey(submissionID, rootListPath+".csv"), "text/csv", csvData)
	if err != nil {
		return nil, err
	}
	baseLink, err := artifacts.UploadFile(ctx, storage.ArtifactKey(submissionID, "base.json"), "application/json", baseData)
	if err != nil {
		return nil, err
	}
	return map[string]string{"csv": csvLink, "base_json": baseLink}, nil
}

func handleUnflatten(c *gin.Context, cfg *config.Config, converter *services.Converter, submissionID string, data []byte, nt models.NoticeType, log *zap.Logger) {
	if converter.Unflattener == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "unflatten is not configured"})
		return
	}
	uploadDir := filepath.Join(cfg.UploadDir, submissionID)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		respondError(c, log, err)
		return
	}
	srcPath := filepath.Join(uploadDir, "upload.csv")
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		respondError(c, log, err)
		return
	}

	in, err := converter.Unflatten(c.Request.Context(), uploadDir, srcPath, nt)
	if err != nil {
		respondError(c, log, err)
		return
	}
	conversionsCounter.WithLabelValues(in.Conversion.NoticeType.String()).Inc()

	pkg, err := os.ReadFile(in.Options.OutputPath)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submission_id":   submissionID,
		"notice_type":     in.Conversion.NoticeType,
		"release_tag":     in.Conversion.NoticeType.ReleaseTag(),
		"encoding":        in.Conversion.Encoding,
		"release_package": json.RawMessage(pkg),
	})
}

func setupCoverageRoutes(router *gin.Engine, converter *services.Converter, repo *storage.CoverageRepository, sheets providers.Source, log *zap.Logger) {
	rg := router.Group("/coverage")

	respond := func(c *gin.Context, report *models.CoverageReport, submissionID string) {
		coverageReportsCounter.WithLabelValues(report.NoticeType.String()).Inc()
		if repo != nil && submissionID != "" {
			if err := repo.Save(models.NewFieldCoverage(submissionID, report)); err != nil {
				log.Error("Failed to save field coverage", zap.String("submission_id", submissionID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
		}
		c.JSON(http.StatusOK, report)
	}

	rg.POST("", func(c *gin.Context) {
		nt, err := parseNoticeTypeParam(c.PostForm("notice_type"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		data, err := readUpload(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		submissionID := c.PostForm("submission_id")
		if submissionID != "" {
			if err := storage.ValidateSubmissionID(submissionID); err != nil {
				respondError(c, log, err)
				return
			}
		}
		report, err := converter.Coverage(data, nt)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respond(c, report, submissionID)
	})

	rg.POST("/sheet", func(c *gin.Context) {
		var req struct {
			URL          string `json:"url" binding:"required"`
			NoticeType   string `json:"notice_type"`
			SubmissionID string `json:"submission_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		nt, err := parseNoticeTypeParam(req.NoticeType)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if req.SubmissionID != "" {
			if err := storage.ValidateSubmissionID(req.SubmissionID); err != nil {
				respondError(c, log, err)
				return
			}
		}
		data, err := sheets.Fetch(c.Request.Context(), req.URL)
		if err != nil {
			log.Warn("Sheet fetch failed", zap.String("source", sheets.Name()), zap.String("url", req.URL), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		report, err := converter.Coverage(data, nt)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respond(c, report, req.SubmissionID)
	})

	rg.GET("/:submission_id", func(c *gin.Context) {
		if repo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
			return
		}
		fc, err := repo.FindBySubmission(c.Param("submission_id"))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "field coverage not found"})
				return
			}
			log.Error("Database query for field coverage failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, fc)
	})
}

func setupMappingRoutes(router *gin.Engine, mappings *mapping.Store, log *zap.Logger) {
	router.POST("/mappings/reload", func(c *gin.Context) {
		if err := reloadMappings(c.Request.Context(), mappings, log); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Mapping table reloaded.", "rows": len(mappings.Current().Rows())})
	})
}
