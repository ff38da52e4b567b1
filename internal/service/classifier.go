package service

import (
	"strings"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
)

// nonAssignmentKeywords mark informational course content rather than gradable work.
var nonAssignmentKeywords = []string{
	"syllabus",
	"course info",
	"course information",
	"welcome",
	"introduction",
	"getting started",
	"orientation",
	"announcement",
	"calendar",
	"schedule",
	"resources",
	"links",
	"extra credit",
	"bonus",
	"optional",
	"practice",
	"sample",
	"example",
	"template",
	"rubric",
}

// inClassKeywords mark work that is completed or handed in during class.
var inClassKeywords = []string{
	"due in class",
	"in-class",
	"in class",
	"class discussion",
	"class participation",
	"attendance",
	"present in class",
	"class presentation",
	"oral presentation",
	"class activity",
	"class work",
	"classwork",
	"participation",
	"discussion post",
	"forum",
	"peer review",
	"group work",
	"lab work",
	"workshop",
}

// IsRealAssignment reports whether a record is gradable work worth tracking.
func IsRealAssignment(a models.Assignment) bool {
	if mentionsAny(a, nonAssignmentKeywords) {
		return false
	}
	if a.DueAt == nil && !a.HasPoints() {
		return false
	}
	switch len(a.SubmissionTypes) {
	case 0:
		return false
	case 1:
		return a.SubmissionTypes[0] != models.SubmissionTypeNone
	default:
		return true
	}
}

// IsDueInClass reports whether a record looks like in-person classroom work. Matching is plain
// substring containment, so "classwork" and "in-class" both hit.
func IsDueInClass(a models.Assignment) bool {
	return mentionsAny(a, inClassKeywords)
}

// Classify builds the enriched record for an assignment that passed IsRealAssignment.
func Classify(a models.Assignment, courseName string) models.ClassifiedAssignment {
	dueInClass := IsDueInClass(a)
	return models.ClassifiedAssignment{
		Assignment:   a,
		CourseName:   courseName,
		IsDueInClass: dueInClass,
		IsHidden:     dueInClass,
		IsSelected:   false,
	}
}

func mentionsAny(a models.Assignment, keywords []string) bool {
	name := strings.ToLower(a.Name)
	description := strings.ToLower(a.DescriptionText())
	for _, keyword := range keywords {
		if strings.Contains(name, keyword) || strings.Contains(description, keyword) {
			return true
		}
	}
	return false
}
