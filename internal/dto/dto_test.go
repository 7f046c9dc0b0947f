package dto

import (
	"math"
	"testing"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestNewPagination_TotalPagesIsCeil(t *testing.T) {
	for total := int64(0); total <= 57; total++ {
		for size := 1; size <= 12; size++ {
			p := NewPagination(total, 1, size)
			want := int64(math.Ceil(float64(total) / float64(size)))
			assert.Equal(t, want, p.TotalPages, "total=%d size=%d", total, size)
		}
	}
}

func TestReportFilter_Normalize(t *testing.T) {
	f := ReportFilter{Page: -3, PageSize: 0}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)

	f = ReportFilter{Page: 2, PageSize: 1000}
	f.Normalize()
	assert.Equal(t, MaxPageSize, f.PageSize)

	f = ReportFilter{Page: math.MaxInt, PageSize: MaxPageSize}
	f.Normalize()
	assert.Equal(t, MaxPage, f.Page)
	assert.Positive(t, (f.Page-1)*f.PageSize)

	u := UserFilter{Page: math.MaxInt / 2, PageSize: 50}
	u.Normalize()
	assert.Equal(t, MaxPage, u.Page)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		wantMsg string
	}{
		{"valid status", &StatusUpdateRequest{Status: "RESOLVED"}, ""},
		{"lowercase status", &StatusUpdateRequest{Status: "resolved"}, "status must be one of"},
		{"missing status", &StatusUpdateRequest{}, "status is required"},
		{"bad category", &ReportFilter{CategoryID: "weather"}, "category_id must be one of"},
		{"bad filter status", &ReportFilter{Status: "open"}, "status must be one of"},
		{"short title", &CreateReportForm{Title: "ab", DescriptionText: "long enough text", LocationRaw: "x", CategoryID: "other"}, "title must be at least 3"},
		{"unknown role", &RegisterRequest{Password: "password1", Role: "ROOT"}, "role must be one of"},
		{"bad officer id", &AssignRequest{OfficerID: "nope"}, "officer_id must be a valid UUID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
