package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"gorm.io/gorm"
)

const (
	PartitionHot  = "hot"
	PartitionCold = "cold"
)

var exportHeader = []string{"ReportId", "Title", "Status", "Category", "Confidence", "IsAnonymous", "CreatedAt"}

// AnalyticsService runs read-only aggregates over the hot and cold fact
// tables. The cold table may not be provisioned yet: every cold query
// degrades to an empty or zeroed result instead of failing.
type AnalyticsService struct {
	db          *gorm.DB
	hotTable    string
	coldTable   string
	exportLimit int
}

func NewAnalyticsService(db *gorm.DB, hotTable, coldTable string, exportLimit int) *AnalyticsService {
	if exportLimit < 1 {
		exportLimit = 10000
	}
	return &AnalyticsService{db: db, hotTable: hotTable, coldTable: coldTable, exportLimit: exportLimit}
}

func (s *AnalyticsService) table(partition string) (string, error) {
	switch partition {
	case PartitionHot:
		return s.hotTable, nil
	case PartitionCold:
		return s.coldTable, nil
	default:
		return "", apperr.Validation("partition must be hot or cold")
	}
}

// coldFallback swallows a cold-partition error.
func coldFallback(query string, err error) {
	metrics.ColdPartitionFallbacks.WithLabelValues(query).Inc()
	slog.Warn("cold partition unavailable, returning empty result", "query", query, "error", err)
}

func (s *AnalyticsService) yearMonthColumns() (string, string) {
	switch s.db.Dialector.Name() {
	case "sqlite":
		return "CAST(strftime('%Y', created_at) AS INTEGER)", "CAST(strftime('%m', created_at) AS INTEGER)"
	case "mysql":
		return "YEAR(created_at)", "MONTH(created_at)"
	default:
		return "CAST(EXTRACT(YEAR FROM created_at) AS INTEGER)", "CAST(EXTRACT(MONTH FROM created_at) AS INTEGER)"
	}
}

func (s *AnalyticsService) count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table(table).Count(&n).Error
	return n, err
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	db := s.db.WithContext(ctx)

	hot, err := s.count(ctx, s.hotTable)
	if err != nil {
		return nil, apperr.Dependency("failed to count hot reports", err)
	}
	cold, err := s.count(ctx, s.coldTable)
	if err != nil {
		coldFallback("dashboard_count", err)
		cold = 0
	}

	resp := &dto.DashboardResponse{
		TotalReports:      hot + cold,
		HotReports:        hot,
		ColdReports:       cold,
		StatusBreakdown:   map[string]int64{},
		CategoryBreakdown: map[string]int64{},
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := db.Table(s.hotTable).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, apperr.Dependency("failed to aggregate statuses", err)
	}
	for _, row := range byStatus {
		resp.StatusBreakdown[row.Status] = row.Count
	}

	var byCategory []struct {
		CategoryID string
		Count      int64
	}
	if err := db.Table(s.hotTable).Select("category_id, COUNT(*) AS count").Group("category_id").Scan(&byCategory).Error; err != nil {
		return nil, apperr.Dependency("failed to aggregate categories", err)
	}
	for _, row := range byCategory {
		resp.CategoryBreakdown[row.CategoryID] = row.Count
	}

	var avg struct{ Avg *float64 }
	if err := db.Table(s.hotTable).Select("AVG(ai_confidence) AS avg").Where("ai_confidence IS NOT NULL").Scan(&avg).Error; err != nil {
		return nil, apperr.Dependency("failed to average confidence", err)
	}
	resp.AvgAIConfidence = avg.Avg

	if err := db.Table(s.hotTable).Where("is_anonymous = ?", true).Count(&resp.AnonymousReports).Error; err != nil {
		return nil, apperr.Dependency("failed to count anonymous reports", err)
	}
	resp.RegisteredReports = hot - resp.AnonymousReports

	monthly, err := s.monthly(ctx, s.hotTable)
	if err != nil {
		return nil, apperr.Dependency("failed to aggregate monthly counts", err)
	}
	resp.MonthlyCategoryCounts = monthly
	return resp, nil
}

func (s *AnalyticsService) monthly(ctx context.Context, table string) ([]dto.MonthlyCategoryCount, error) {
	year, month := s.yearMonthColumns()
	rows := []dto.MonthlyCategoryCount{}
	err := s.db.WithContext(ctx).Table(table).
		Select(fmt.Sprintf("%s AS year, %s AS month, category_id, COUNT(*) AS count", year, month)).
		Group("year, month, category_id").
		Order("year DESC, month DESC, category_id ASC").
		Scan(&rows).Error
	return rows, err
}

// MonthlyCategoryBreakdown counts reports per (year, month, category).
func (s *AnalyticsService) MonthlyCategoryBreakdown(ctx context.Context, partition string) (*dto.MonthlyBreakdownResponse, error) {
	table, err := s.table(partition)
	if err != nil {
		return nil, err
	}
	rows, err := s.monthly(ctx, table)
	if err != nil {
		if partition == PartitionCold {
			coldFallback("monthly_category", err)
			rows = []dto.MonthlyCategoryCount{}
		} else {
			return nil, apperr.Dependency("failed to aggregate monthly counts", err)
		}
	}
	return &dto.MonthlyBreakdownResponse{Partition: partition, Items: rows}, nil
}

// StatusCategoryMatrix returns a count for every status and category pair,
// zeros included.
func (s *AnalyticsService) StatusCategoryMatrix(ctx context.Context, partition string) (*dto.StatusCategoryMatrixResponse, error) {
	table, err := s.table(partition)
	if err != nil {
		return nil, err
	}

	var rows []dto.StatusCategoryCount
	err = s.db.WithContext(ctx).Table(table).
		Select("status, category_id, COUNT(*) AS count").
		Group("status, category_id").
		Scan(&rows).Error
	if err != nil {
		if partition != PartitionCold {
			return nil, apperr.Dependency("failed to aggregate status matrix", err)
		}
		coldFallback("status_category", err)
		rows = nil
	}

	counts := make(map[[2]string]int64, len(rows))
	for _, r := range rows {
		counts[[2]string{r.Status, r.CategoryID}] += r.Count
	}
	items := make([]dto.StatusCategoryCount, 0, len(models.ReportStatuses)*len(models.ReportCategories))
	for _, status := range models.ReportStatuses {
		for _, category := range models.ReportCategories {
			items = append(items, dto.StatusCategoryCount{
				Status:     status,
				CategoryID: category,
				Count:      counts[[2]string{status, category}],
			})
		}
	}
	return &dto.StatusCategoryMatrixResponse{Partition: partition, Items: items}, nil
}

// ExportCSV writes the most recent hot rows as CSV.
func (s *AnalyticsService) ExportCSV(ctx context.Context, w io.Writer) error {
	var rows []models.FactReport
	err := s.db.WithContext(ctx).Table(s.hotTable).
		Select("report_id, title, status, category_id, ai_confidence, is_anonymous, created_at").
		Order("created_at DESC").
		Limit(s.exportLimit).
		Find(&rows).Error
	if err != nil {
		return apperr.Dependency("failed to load reports for export", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		confidence := ""
		if r.AIConfidence != nil {
			confidence = strconv.FormatFloat(*r.AIConfidence, 'f', 4, 64)
		}
		anonymous := ""
		if r.IsAnonymous != nil {
			anonymous = strconv.FormatBool(*r.IsAnonymous)
		}
		record := []string{
			r.ReportID,
			r.Title,
			r.Status,
			r.CategoryID,
			confidence,
			anonymous,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
