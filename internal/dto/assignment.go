package dto

import (
	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	"github.com/noah-isme/canvas-assignment-manager/pkg/jobs"
)

// UpdateConfigRequest carries the Canvas credentials to store.
type UpdateConfigRequest struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// ShowHiddenRequest toggles display of hidden assignments.
type ShowHiddenRequest struct {
	Show *bool `json:"show" binding:"required"`
}

// ReplaceAssignmentsRequest replaces the whole collection.
type ReplaceAssignmentsRequest struct {
	Assignments []models.ClassifiedAssignment `json:"assignments" binding:"required"`
}

// AssignmentFlags reports an item's flags after a toggle.
type AssignmentFlags struct {
	ID           int64 `json:"id"`
	IsSelected   bool  `json:"isSelected"`
	IsHidden     bool  `json:"isHidden"`
	IsDueInClass bool  `json:"isDueInClass"`
}

// RefreshResponse is returned by the refresh endpoint. Job is set when the refresh runs in the
// background.
type RefreshResponse struct {
	State models.StoreSnapshot `json:"state"`
	Job   *jobs.State          `json:"job,omitempty"`
}
