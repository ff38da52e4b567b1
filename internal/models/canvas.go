package models

import "time"

// Workflow states reported by Canvas for assignments.
const (
	WorkflowPublished   = "published"
	WorkflowUnpublished = "unpublished"
)

// SubmissionTypeNone marks an assignment that accepts no submission.
const SubmissionTypeNone = "none"

// Course is an active enrollment returned by the Canvas courses endpoint.
type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code"`
	WorkflowState string `json:"workflow_state"`
}

// Assignment mirrors the Canvas assignment payload fields the pipeline uses.
type Assignment struct {
	ID                      int64      `json:"id"`
	Name                    string     `json:"name"`
	Description             *string    `json:"description"`
	DueAt                   *time.Time `json:"due_at"`
	PointsPossible          *float64   `json:"points_possible"`
	CourseID                int64      `json:"course_id"`
	HTMLURL                 string     `json:"html_url"`
	SubmissionTypes         []string   `json:"submission_types"`
	HasSubmittedSubmissions bool       `json:"has_submitted_submissions"`
	WorkflowState           string     `json:"workflow_state"`
}

// DescriptionText returns the description or an empty string.
func (a Assignment) DescriptionText() string {
	if a.Description == nil {
		return ""
	}
	return *a.Description
}

// HasPoints reports whether a non-zero points value is present.
func (a Assignment) HasPoints() bool {
	return a.PointsPossible != nil && *a.PointsPossible != 0
}

// ClassifiedAssignment is an Assignment enriched at aggregation time. IsDueInClass is fixed once
// computed; IsHidden starts equal to it and is then owned by the user.
type ClassifiedAssignment struct {
	Assignment
	IsSelected   bool   `json:"isSelected"`
	CourseName   string `json:"courseName,omitempty"`
	IsDueInClass bool   `json:"isDueInClass"`
	IsHidden     bool   `json:"isHidden"`
}

// APIConfig holds the Canvas base URL and the user's access token.
type APIConfig struct {
	BaseURL string `json:"baseUrl" validate:"required,https_url"`
	APIKey  string `json:"apiKey" validate:"required,canvas_token"`
}

// MaskedKey returns the token with all but the last four characters hidden.
func (c APIConfig) MaskedKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return "****" + c.APIKey[len(c.APIKey)-4:]
}
