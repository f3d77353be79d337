package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"silvereye/models"
)

func newTestRepository(t *testing.T) *CoverageRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	repo := NewCoverageRepository(db, zap.NewNop())
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestCoverageRepositorySaveAndFind(t *testing.T) {
	repo := newTestRepository(t)

	report := &models.CoverageReport{
		NoticeType:             models.NoticeTender,
		ExpectedFields:         6,
		RequiredFieldsMissing:  []string{"Buyer Name"},
		CompletedFieldsCounts:  []int{7, 5, 4},
		AverageFieldCompletion: 16.0 / 3,
	}
	require.NoError(t, repo.Save(models.NewFieldCoverage("sub-1", report)))

	fc, err := repo.FindBySubmission("sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.NoticeTender, fc.NoticeType)
	require.NotNil(t, fc.TendersFieldCoverage)
	assert.InDelta(t, 16.0/3, *fc.TendersFieldCoverage, 1e-9)
	assert.Nil(t, fc.AwardsFieldCoverage)
	assert.Equal(t, 3, fc.Records)
	assert.Equal(t, 1, fc.RequiredMissing)
}

func TestCoverageRepositoryUpsert(t *testing.T) {
	repo := newTestRepository(t)

	first := &models.CoverageReport{NoticeType: models.NoticeSpend, CompletedFieldsCounts: []int{2}, AverageFieldCompletion: 2}
	second := &models.CoverageReport{NoticeType: models.NoticeSpend, CompletedFieldsCounts: []int{4, 6}, AverageFieldCompletion: 5}
	require.NoError(t, repo.Save(models.NewFieldCoverage("sub-2", first)))
	require.NoError(t, repo.Save(models.NewFieldCoverage("sub-2", second)))

	var count int64
	require.NoError(t, repo.DB.Model(&models.FieldCoverage{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	fc, err := repo.FindBySubmission("sub-2")
	require.NoError(t, err)
	assert.Equal(t, 2, fc.Records)
	assert.InDelta(t, 5.0, *fc.SpendFieldCoverage, 1e-9)
}

func TestCoverageRepositoryNotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.FindBySubmission("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
