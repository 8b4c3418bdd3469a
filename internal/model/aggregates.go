package model

import "time"

// DailyCount is one day bucket of a growth curve.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// SessionTrendPoint is one day bucket of session volume plus the average
// session duration in whole seconds for that day.
type SessionTrendPoint struct {
	Date        string `json:"date"`
	Count       int64  `json:"count"`
	AvgDuration int64  `json:"avg_duration"`
}

// HourlyBucket is one hour-of-day bucket of session starts.
type HourlyBucket struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// FlowStepCount is a flow step and how often it was recorded.
type FlowStepCount struct {
	Step  FlowStep `json:"step"`
	Count int64    `json:"count"`
}

// FunnelStage is one ordered conversion-funnel stage with its hit count.
type FunnelStage struct {
	Step  FlowStep `json:"step"`
	Count int64    `json:"count"`
}

// EventStat aggregates analytics events for one (category, action) pair.
type EventStat struct {
	Category    EventCategory `json:"category"`
	Action      string        `json:"action"`
	Count       int64         `json:"count"`
	UniqueUsers int64         `json:"unique_users"`
	AvgValue    float64       `json:"avg_value"`
}

// RealTimeStats is the trailing-window activity snapshot.
type RealTimeStats struct {
	ActiveUsers    int64     `json:"active_users"`
	RecentSessions int64     `json:"recent_sessions"`
	RecentMessages int64     `json:"recent_messages"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionStats summarizes session volume grouped by source.
type SessionStats struct {
	Total       int64            `json:"total"`
	Active      int64            `json:"active"`
	BySource    map[string]int64 `json:"by_source"`
	AvgDuration int64            `json:"avg_duration"`
}
