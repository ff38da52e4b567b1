package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
)

func strPtr(value string) *string {
	return &value
}

func floatPtr(value float64) *float64 {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}

func realAssignment(id int64, name string) models.Assignment {
	return models.Assignment{
		ID:              id,
		Name:            name,
		DueAt:           timePtr(time.Date(2026, 10, 20, 23, 59, 0, 0, time.UTC)),
		PointsPossible:  floatPtr(10),
		SubmissionTypes: []string{"online_upload"},
		WorkflowState:   models.WorkflowPublished,
	}
}

func TestIsRealAssignmentSubmissionTypes(t *testing.T) {
	cases := map[string][]string{
		"nil":   nil,
		"empty": {},
		"none":  {"none"},
	}
	for name, types := range cases {
		t.Run(name, func(t *testing.T) {
			a := realAssignment(1, "Essay 1")
			a.SubmissionTypes = types
			assert.False(t, IsRealAssignment(a))
		})
	}

	a := realAssignment(1, "Essay 1")
	a.SubmissionTypes = []string{"none", "on_paper"}
	assert.True(t, IsRealAssignment(a))
}

func TestIsRealAssignmentDenyList(t *testing.T) {
	for _, name := range []string{"Course SYLLABUS", "Syllabus quiz", "Weekly Schedule", "Grading Rubric", "Extra Credit: poster"} {
		assert.False(t, IsRealAssignment(realAssignment(1, name)), name)
	}

	a := realAssignment(2, "Essay 2")
	a.Description = strPtr("<p>Use the provided <b>template</b>.</p>")
	assert.False(t, IsRealAssignment(a))
}

func TestIsRealAssignmentRequiresDueOrPoints(t *testing.T) {
	a := realAssignment(1, "Essay")
	a.DueAt = nil
	a.PointsPossible = nil
	assert.False(t, IsRealAssignment(a))

	a.PointsPossible = floatPtr(0)
	assert.False(t, IsRealAssignment(a), "zero points counts as absent")

	a.PointsPossible = floatPtr(5)
	assert.True(t, IsRealAssignment(a))

	b := realAssignment(2, "Lab report")
	b.PointsPossible = nil
	assert.True(t, IsRealAssignment(b))
}

func TestIsDueInClass(t *testing.T) {
	assert.True(t, IsDueInClass(realAssignment(1, "Week 3 Participation")))
	assert.True(t, IsDueInClass(realAssignment(2, "In-Class Quiz")))
	assert.True(t, IsDueInClass(realAssignment(3, "Classwork 4")))

	described := realAssignment(4, "Reading response")
	described.Description = strPtr("Counts toward your PARTICIPATION grade")
	assert.True(t, IsDueInClass(described))

	assert.False(t, IsDueInClass(realAssignment(5, "Essay 1")))
}

func TestIsDueInClassSubstringMatching(t *testing.T) {
	// "forum" inside "platforum" matches.
	assert.True(t, IsDueInClass(realAssignment(1, "Platforum design notes")))
}

func TestClassifyInitialisesFlags(t *testing.T) {
	a := realAssignment(1, "Attendance check")
	got := Classify(a, "Biology")

	assert.True(t, got.IsDueInClass)
	assert.True(t, got.IsHidden)
	assert.False(t, got.IsSelected)
	assert.Equal(t, "Biology", got.CourseName)
	assert.Equal(t, "Attendance check", a.Name, "input is not mutated")

	normal := Classify(realAssignment(2, "Essay"), "Biology")
	assert.False(t, normal.IsDueInClass)
	assert.False(t, normal.IsHidden)
}
