package dto

type MonthlyCategoryCount struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	CategoryID string `json:"category_id"`
	Count      int64  `json:"count"`
}

type StatusCategoryCount struct {
	Status     string `json:"status"`
	CategoryID string `json:"category_id"`
	Count      int64  `json:"count"`
}

type DashboardResponse struct {
	TotalReports          int64                  `json:"total_reports"`
	HotReports            int64                  `json:"hot_reports"`
	ColdReports           int64                  `json:"cold_reports"`
	StatusBreakdown       map[string]int64       `json:"status_breakdown"`
	CategoryBreakdown     map[string]int64       `json:"category_breakdown"`
	AvgAIConfidence       *float64               `json:"avg_ai_confidence"`
	AnonymousReports      int64                  `json:"anonymous_reports"`
	RegisteredReports     int64                  `json:"registered_reports"`
	MonthlyCategoryCounts []MonthlyCategoryCount `json:"monthly_category_counts"`
}

type MonthlyBreakdownResponse struct {
	Partition string                 `json:"partition"`
	Items     []MonthlyCategoryCount `json:"items"`
}

type StatusCategoryMatrixResponse struct {
	Partition string                `json:"partition"`
	Items     []StatusCategoryCount `json:"items"`
}
