package service

import (
	"strconv"
	"time"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
)

type demoSeed struct {
	id          int64
	courseID    int64
	course      string
	name        string
	description string
	dueIn       time.Duration
	points      float64
	submission  string
}

var demoSeeds = []demoSeed{
	{1, 101, "Advanced Mathematics", "Math Homework - Chapter 5", "Complete exercises 1-20 from Chapter 5", 2 * 24 * time.Hour, 100, "online_text_entry"},
	{2, 102, "World History", "History Essay - World War II", "Write a 5-page essay on the causes of World War II", 5 * 24 * time.Hour, 150, "online_upload"},
	{3, 103, "Chemistry 101", "Science Lab Report", "Submit lab report for chemistry experiment", -24 * time.Hour, 75, "online_upload"},
	{4, 104, "Computer Science", "Programming Project - Calculator App", "Build a calculator app using React", 7 * 24 * time.Hour, 200, "online_url"},
}

// DemoAssignments returns the sample collection used to try the triage flow without Canvas
// credentials. Due dates are relative to now.
func DemoAssignments(now time.Time) []models.ClassifiedAssignment {
	out := make([]models.ClassifiedAssignment, 0, len(demoSeeds))
	for _, seed := range demoSeeds {
		due := now.Add(seed.dueIn).UTC()
		points := seed.points
		description := seed.description
		out = append(out, Classify(models.Assignment{
			ID:              seed.id,
			Name:            seed.name,
			Description:     &description,
			DueAt:           &due,
			PointsPossible:  &points,
			CourseID:        seed.courseID,
			HTMLURL:         "https://example.com/assignment" + strconv.FormatInt(seed.id, 10),
			SubmissionTypes: []string{seed.submission},
			WorkflowState:   models.WorkflowPublished,
		}, seed.course))
	}
	return out
}
