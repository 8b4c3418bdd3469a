package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MetricCategory groups precomputed dashboard metrics.
type MetricCategory string

const (
	MetricCategoryUsers       MetricCategory = "Users"
	MetricCategorySessions    MetricCategory = "Sessions"
	MetricCategoryEngagement  MetricCategory = "Engagement"
	MetricCategoryPerformance MetricCategory = "Performance"
)

// Metric names written by the daily batch computation.
const (
	MetricDailyActiveUsers   = "daily_active_users"
	MetricNewUsers           = "new_users"
	MetricTotalSessions      = "total_sessions"
	MetricAvgSessionDuration = "avg_session_duration"
	MetricMessagesSent       = "messages_sent"
)

// DashboardMetric is a precomputed daily aggregate keyed on
// (metricDate, metricName). Upserted by the aggregation engine and
// read-only to every other component.
type DashboardMetric struct {
	ID             string         `json:"id" gorm:"primaryKey;type:text"`
	MetricDate     time.Time      `json:"metric_date" gorm:"column:metric_date;type:date;uniqueIndex:idx_metric_date_name"`
	MetricName     string         `json:"metric_name" gorm:"column:metric_name;type:text;uniqueIndex:idx_metric_date_name" validate:"required"`
	MetricCategory MetricCategory `json:"metric_category,omitempty" gorm:"column:metric_category;type:text"`
	MetricValue    float64        `json:"metric_value" gorm:"column:metric_value"`
	Breakdown      datatypes.JSON `json:"breakdown,omitempty" gorm:"type:jsonb;column:breakdown"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the DashboardMetric model.
func (DashboardMetric) TableName() string {
	return "dashboard_metrics"
}

// NewDashboardMetric builds a metric row for the UTC calendar day of date.
func NewDashboardMetric(date time.Time, name string, category MetricCategory, value float64, breakdown datatypes.JSON) *DashboardMetric {
	return &DashboardMetric{
		ID:             uuid.NewString(),
		MetricDate:     MetricDay(date),
		MetricName:     name,
		MetricCategory: category,
		MetricValue:    value,
		Breakdown:      breakdown,
	}
}

// MetricDay truncates a timestamp to its UTC calendar day.
func MetricDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// GetUpdatableFields returns the column names refreshed during an
// ON CONFLICT upsert on (metric_date, metric_name).
func (m *DashboardMetric) GetUpdatableFields() []string {
	return []string{
		"metric_category", "metric_value", "breakdown", "updated_at",
	}
}
