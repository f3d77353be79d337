package storage

import (
	"errors"

	"silvereye/config"
	"silvereye/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound wird zurückgegeben, wenn zu einer Einreichung keine Abdeckung gespeichert ist.
var ErrNotFound = errors.New("field coverage not found")

// OpenDB verbindet sich mit der PostgreSQL-Datenbank aus der Konfiguration.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// CoverageRepository speichert Abdeckungsergebnisse je Einreichung.
type CoverageRepository struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewCoverageRepository erstellt ein neues Repository.
func NewCoverageRepository(db *gorm.DB, logger *zap.Logger) *CoverageRepository {
	return &CoverageRepository{DB: db, Logger: logger}
}

// AutoMigrate legt die Tabelle für FieldCoverage an.
func (r *CoverageRepository) AutoMigrate() error {
	return r.DB.AutoMigrate(&models.FieldCoverage{})
}

// Save legt den Datensatz an oder überschreibt einen vorhandenen mit derselben SubmissionID.
func (r *CoverageRepository) Save(fc *models.FieldCoverage) error {
	err := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at", "notice_type",
			"tenders_field_coverage", "awards_field_coverage", "spend_field_coverage",
			"expected_fields", "required_missing", "records",
		}),
	}).Create(fc).Error
	if err != nil {
		return err
	}
	r.Logger.Info("Feldabdeckung gespeichert",
		zap.String("submission_id", fc.SubmissionID),
		zap.String("notice_type", fc.NoticeType.String()))
	return nil
}

// FindBySubmission lädt die gespeicherte Abdeckung einer Einreichung.
func (r *CoverageRepository) FindBySubmission(submissionID string) (*models.FieldCoverage, error) {
	var fc models.FieldCoverage
	if err := r.DB.Where("submission_id = ?", submissionID).First(&fc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &fc, nil
}
