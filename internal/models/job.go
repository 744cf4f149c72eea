package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScheduleType is the dialect a Job's Schedule expression is written in.
type ScheduleType string

const (
	ScheduleTypeCron   ScheduleType = "cron"
	ScheduleTypeRepeat ScheduleType = "repeat"
)

// HTTPMethod is the method used when the scheduler invokes a Job's endpoint.
type HTTPMethod string

const (
	MethodGET  HTTPMethod = "GET"
	MethodPOST HTTPMethod = "POST"
)

// ExecutionMode controls how concurrent fires of the same Job are gated.
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// ExecutionStatus is the terminal outcome of one attempt sequence.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

const (
	// DefaultRequestTimeoutMS is applied when a Job omits RequestTimeout.
	DefaultRequestTimeoutMS = 30000
	MinRequestTimeoutMS     = 1000
	MaxRequestTimeoutMS     = 300000

	DefaultMaxConcurrent = 1
	MinMaxConcurrent     = 1
	MaxMaxConcurrent     = 100

	// MaxResponseBodyBytes bounds persisted ExecutionLog.ResponseBody.
	MaxResponseBodyBytes = 10 * 1024
	TruncationSuffix     = "… [truncated]"

	// CollapsedResponseBodyChars bounds ExecutionLog.ResponseBody in API
	// responses when the caller did not ask for expand=true.
	CollapsedResponseBodyChars = 500
	CollapsedSuffix            = "..."
)

// Job is a persisted recipe for one HTTP request plus a schedule.
type Job struct {
	ID             uuid.UUID     `json:"id" gorm:"type:text;primaryKey"`
	Name           string        `json:"name" gorm:"type:varchar(255);not null"`
	URL            string        `json:"url" gorm:"column:url;type:varchar(2048);not null"`
	Method         HTTPMethod    `json:"method" gorm:"type:varchar(10);not null;default:GET"`
	Headers        string        `json:"headers,omitempty" gorm:"type:text"`
	Body           string        `json:"body,omitempty" gorm:"type:text"`
	Schedule       string        `json:"schedule" gorm:"type:varchar(255);not null"`
	ScheduleType   ScheduleType  `json:"scheduleType" gorm:"column:schedule_type;type:varchar(20);not null;index:idx_cronjobs_schedule_type"`
	IsActive       bool          `json:"isActive" gorm:"column:is_active;not null;default:true;index:idx_cronjobs_is_active"`
	RequestTimeout int           `json:"requestTimeout" gorm:"column:request_timeout;default:30000"`
	ExecutionMode  ExecutionMode `json:"executionMode" gorm:"column:execution_mode;type:varchar(20);not null;default:sequential"`
	MaxConcurrent  int           `json:"maxConcurrent" gorm:"column:max_concurrent;default:1"`
	CurrentRunning int           `json:"currentRunning" gorm:"column:current_running;default:0"`
	ExecutionCount int64         `json:"executionCount" gorm:"column:execution_count;default:0"`
	LastExecutedAt *time.Time    `json:"lastExecutedAt,omitempty" gorm:"column:last_executed_at"`
	CreatedAt      time.Time     `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time     `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Job) TableName() string {
	return "cronjobs"
}

// ExecutionLog is one insert-only record of an attempt sequence's outcome.
type ExecutionLog struct {
	ID                uuid.UUID       `json:"id" gorm:"type:text;primaryKey"`
	JobID             uuid.UUID       `json:"jobId" gorm:"column:job_id;type:text;not null;index:idx_execution_logs_job_id"`
	ExecutedAt        time.Time       `json:"executedAt" gorm:"column:executed_at;not null;index:idx_execution_logs_executed_at"`
	Status            ExecutionStatus `json:"status" gorm:"type:varchar(10);not null;index:idx_execution_logs_status"`
	ResponseCode      *int            `json:"responseCode,omitempty" gorm:"column:response_code"`
	ExecutionTime     int64           `json:"executionTime" gorm:"column:execution_time"`
	ResponseBody      string          `json:"responseBody,omitempty" gorm:"column:response_body;type:text"`
	ErrorMessage      string          `json:"errorMessage,omitempty" gorm:"column:error_message;type:text"`
	TriggeredManually bool            `json:"triggeredManually" gorm:"column:triggered_manually;default:false"`
	RetryCount        int             `json:"retryCount,omitempty" gorm:"column:retry_count"`
	CreatedAt         time.Time       `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for GORM.
func (ExecutionLog) TableName() string {
	return "execution_logs"
}

// CreateJobRequest is the validated payload for creating a Job.
type CreateJobRequest struct {
	Name           string        `json:"name" validate:"required,min=1,max=255"`
	URL            string        `json:"url" validate:"required,url"`
	Method         HTTPMethod    `json:"method,omitempty"`
	Headers        string        `json:"headers,omitempty"`
	Body           string        `json:"body,omitempty"`
	Schedule       string        `json:"schedule" validate:"required"`
	ScheduleType   ScheduleType  `json:"scheduleType" validate:"required,oneof=cron repeat"`
	IsActive       *bool         `json:"isActive,omitempty"`
	RequestTimeout int           `json:"requestTimeout,omitempty"`
	ExecutionMode  ExecutionMode `json:"executionMode,omitempty"`
	MaxConcurrent  int           `json:"maxConcurrent,omitempty"`
}

// UpdateJobRequest is the validated payload for updating a Job. Pointer
// fields distinguish "absent" from "zero value" the same way the teacher's
// UpdateJobRequest does.
type UpdateJobRequest struct {
	Name           *string        `json:"name,omitempty"`
	URL            *string        `json:"url,omitempty"`
	Method         *HTTPMethod    `json:"method,omitempty"`
	Headers        *string        `json:"headers,omitempty"`
	Body           *string        `json:"body,omitempty"`
	Schedule       *string        `json:"schedule,omitempty"`
	ScheduleType   *ScheduleType  `json:"scheduleType,omitempty"`
	RequestTimeout *int           `json:"requestTimeout,omitempty"`
	ExecutionMode  *ExecutionMode `json:"executionMode,omitempty"`
	MaxConcurrent  *int           `json:"maxConcurrent,omitempty"`
}

// JobFilter filters the job list query.
type JobFilter struct {
	Status       string
	ScheduleType ScheduleType
	Name         string
	Page         int
	PageSize     int
}

// LogFilter filters the execution log query.
type LogFilter struct {
	JobID             *uuid.UUID
	Status            ExecutionStatus
	TriggeredManually *bool
	StartDate         *time.Time
	EndDate           *time.Time
	JobName           string
	ResponseContent   string
	Page              int
	PageSize          int
	Expand            bool
}

// JobListResult is a page of jobs.
type JobListResult struct {
	Jobs       []Job `json:"jobs"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	HasMore    bool  `json:"hasMore"`
}

// LogListResult is a page of execution logs.
type LogListResult struct {
	Logs       []ExecutionLog `json:"logs"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	HasMore    bool           `json:"hasMore"`
}

// JobStats summarizes counts across the job set.
type JobStats struct {
	TotalJobs  int64 `json:"totalJobs"`
	ActiveJobs int64 `json:"activeJobs"`
}

// LogStatsEntry is one row of per-job (or overall) execution statistics.
type LogStatsEntry struct {
	JobID          *uuid.UUID `json:"jobId,omitempty"`
	JobName        string     `json:"jobName,omitempty"`
	TotalCount     int64      `json:"totalCount"`
	SuccessCount   int64      `json:"successCount"`
	FailureCount   int64      `json:"failureCount"`
	SuccessRate    float64    `json:"successRate"`
	MinExecutionMS int64      `json:"minExecutionMs"`
	AvgExecutionMS float64    `json:"avgExecutionMs"`
	MaxExecutionMS int64      `json:"maxExecutionMs"`
}

// LogStats is the response shape for GET /api/logs/stats.
type LogStats struct {
	Overall LogStatsEntry   `json:"overall"`
	ByJob   []LogStatsEntry `json:"byJob"`
}

// CollapseResponseBody truncates logs' ResponseBody fields to
// CollapsedResponseBodyChars with CollapsedSuffix, per spec.md §6's
// "expand=false truncates responseBody to 500 chars with an ellipsis
// suffix". Called by the log read handlers; it never mutates persisted
// rows, only the response payload.
func CollapseResponseBody(logs []ExecutionLog) {
	for i := range logs {
		if len(logs[i].ResponseBody) > CollapsedResponseBodyChars {
			logs[i].ResponseBody = logs[i].ResponseBody[:CollapsedResponseBodyChars] + CollapsedSuffix
		}
	}
}

// ParsedHeaders best-effort parses Job.Headers as a JSON object of string
// values. An empty or invalid literal is treated as an empty map, per
// spec.md §3 ("empty/invalid ⇒ treated as empty map (non-fatal)").
func ParsedHeaders(headers string) map[string]string {
	out := map[string]string{}
	if headers == "" {
		return out
	}
	if err := json.Unmarshal([]byte(headers), &out); err != nil {
		return map[string]string{}
	}
	return out
}
