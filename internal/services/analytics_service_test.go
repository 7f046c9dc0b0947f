package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	hotTable  = "hot_fact_reports"
	coldTable = "cold_fact_reports"
)

func floatPtr(f float64) *float64 { return &f }

func seedFacts(t *testing.T, db *gorm.DB, table string, rows []models.FactReport) {
	t.Helper()
	require.NoError(t, db.Table(table).AutoMigrate(&models.FactReport{}))
	if len(rows) > 0 {
		require.NoError(t, db.Table(table).Create(&rows).Error)
	}
}

func fact(id, status, category string, createdAt time.Time, confidence *float64, anonymous bool) models.FactReport {
	return models.FactReport{
		ReportID:     id,
		Title:        "Report " + id,
		Status:       status,
		CategoryID:   category,
		AIConfidence: confidence,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		IsAnonymous:  &anonymous,
		ExtractedAt:  createdAt,
	}
}

func hotFacts() []models.FactReport {
	jan := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 3, 9, 0, 0, 0, time.UTC)
	return []models.FactReport{
		fact("R-00000001", models.StatusSubmitted, models.CategoryCrime, jan, floatPtr(0.8), false),
		fact("R-00000002", models.StatusResolved, models.CategoryCrime, jan, floatPtr(0.6), true),
		fact("R-00000003", models.StatusSubmitted, models.CategoryTraffic, feb, nil, false),
	}
}

func TestDashboard_ColdPartitionMissing(t *testing.T) {
	db := setupTestDB(t)
	seedFacts(t, db, hotTable, hotFacts())
	svc := NewAnalyticsService(db, hotTable, coldTable, 100)

	resp, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.HotReports)
	assert.Zero(t, resp.ColdReports)
	assert.Equal(t, int64(3), resp.TotalReports)
	assert.Equal(t, int64(2), resp.StatusBreakdown[models.StatusSubmitted])
	assert.Equal(t, int64(2), resp.CategoryBreakdown[models.CategoryCrime])
	assert.Equal(t, int64(1), resp.AnonymousReports)
	assert.Equal(t, int64(2), resp.RegisteredReports)
	require.NotNil(t, resp.AvgAIConfidence)
	assert.InDelta(t, 0.7, *resp.AvgAIConfidence, 1e-9)
	assert.Len(t, resp.MonthlyCategoryCounts, 2)
}

func TestDashboard_IncludesColdCount(t *testing.T) {
	db := setupTestDB(t)
	seedFacts(t, db, hotTable, hotFacts())
	old := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	seedFacts(t, db, coldTable, []models.FactReport{
		fact("R-0000000A", models.StatusResolved, models.CategoryOther, old, nil, false),
	})
	svc := NewAnalyticsService(db, hotTable, coldTable, 100)

	resp, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ColdReports)
	assert.Equal(t, int64(4), resp.TotalReports)
}

func TestDashboard_HotPartitionMissingFails(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAnalyticsService(db, hotTable, coldTable, 100)

	_, err := svc.Dashboard(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindDependencyFailure))
}

func TestMonthlyCategoryBreakdown(t *testing.T) {
	db := setupTestDB(t)
	seedFacts(t, db, hotTable, hotFacts())
	svc := NewAnalyticsService(db, hotTable, coldTable, 100)
	ctx := context.Background()

	hot, err := svc.MonthlyCategoryBreakdown(ctx, PartitionHot)
	require.NoError(t, err)
	require.Len(t, hot.Items, 2)
	// newest month first
	assert.Equal(t, 2026, hot.Items[0].Year)
	assert.Equal(t, 2, hot.Items[0].Month)
	assert.Equal(t, models.CategoryTraffic, hot.Items[0].CategoryID)
	assert.Equal(t, int64(2), hot.Items[1].Count)

	cold, err := svc.MonthlyCategoryBreakdown(ctx, PartitionCold)
	require.NoError(t, err)
	assert.Equal(t, PartitionCold, cold.Partition)
	assert.Empty(t, cold.Items)
	assert.NotNil(t, cold.Items)

	_, err = svc.MonthlyCategoryBreakdown(ctx, "warm")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestStatusCategoryMatrix(t *testing.T) {
	db := setupTestDB(t)
	seedFacts(t, db, hotTable, hotFacts())
	svc := NewAnalyticsService(db, hotTable, coldTable, 100)
	ctx := context.Background()

	full := len(models.ReportStatuses) * len(models.ReportCategories)

	hot, err := svc.StatusCategoryMatrix(ctx, PartitionHot)
	require.NoError(t, err)
	require.Len(t, hot.Items, full)
	var total int64
	for _, item := range hot.Items {
		total += item.Count
		if item.Status == models.StatusSubmitted && item.CategoryID == models.CategoryCrime {
			assert.Equal(t, int64(1), item.Count)
		}
	}
	assert.Equal(t, int64(3), total)

	cold, err := svc.StatusCategoryMatrix(ctx, PartitionCold)
	require.NoError(t, err)
	require.Len(t, cold.Items, full)
	for _, item := range cold.Items {
		assert.Zero(t, item.Count)
	}
}

func TestExportCSV(t *testing.T) {
	db := setupTestDB(t)
	seedFacts(t, db, hotTable, hotFacts())
	svc := NewAnalyticsService(db, hotTable, coldTable, 2)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus export limit")
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "R-00000003", records[1][0])
	assert.Equal(t, "", records[1][4])
	assert.Equal(t, "false", records[1][5])
}
