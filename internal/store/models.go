package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID          string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

// Presentation is the persisted row. Data holds the serialized document;
// the counts and theme name are denormalised from it on every write.
type Presentation struct {
	ID           string
	Title        string
	Data         json.RawMessage
	UserID       string
	Version      string
	Tags         []string
	SlideCount   int
	ElementCount int
	ThemeName    string
	BodyText     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PresentationSummary is a list row without the document payload.
type PresentationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UserID       string    `json:"userId,omitempty"`
	SlideCount   int       `json:"slideCount"`
	ElementCount int       `json:"elementCount"`
	ThemeName    string    `json:"themeName,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type OperationLog struct {
	ID              string          `json:"id"`
	Operation       string          `json:"operation"`
	ElementType     string          `json:"elementType"`
	Target          string          `json:"target"`
	Data            json.RawMessage `json:"data,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	UserID          string          `json:"userId,omitempty"`
	SessionID       string          `json:"sessionId,omitempty"`
	PresentationID  string          `json:"presentationId,omitempty"`
	SlideIndex      *int            `json:"slideIndex,omitempty"`
	ExecutionTimeMS float64         `json:"executionTimeMs"`
	Success         bool            `json:"success"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	Context         json.RawMessage `json:"context,omitempty"`
}

type OperationStats struct {
	TotalOperations      int            `json:"total_operations"`
	OperationsByType     map[string]int `json:"operations_by_type"`
	OperationsByElement  map[string]int `json:"operations_by_element"`
	RecentOperations24h  int            `json:"recent_operations_24h"`
	AverageExecutionTime float64        `json:"average_execution_time_ms"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type OperationCount struct {
	Operation string `json:"operation"`
	Count     int    `json:"count"`
}

type UsageAnalytics struct {
	PeriodDays        int              `json:"period_days"`
	DailyOperations   []DailyCount     `json:"daily_operations"`
	PopularOperations []OperationCount `json:"popular_operations"`
	ActiveUsers       int              `json:"active_users"`
}

type Checkpoint struct {
	PresentationID string    `json:"presentationId"`
	Name           string    `json:"name"`
	Hash           string    `json:"hash"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}
