package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// UnknownName is the placeholder name for terms and instructors whose name is not known
const UnknownName = "null"

// Course represents a course offering returned by search or instructor lookups
type Course struct {
	ID           string
	SubjectID    string
	CourseNumber string // sorted as a plain string, so "100" precedes "20"
	Title        string
	Term         *Term
}

type courseJSON struct {
	CourseID     *string `json:"courseId"`
	SubjectID    *string `json:"subjectId"`
	CourseNumber *string `json:"courseNumber"`
	Title        *string `json:"title"`
}

type courseNodeJSON struct {
	ID      *string `json:"id"`
	Subject *struct {
		ID *string `json:"id"`
	} `json:"subject"`
	CourseNumber *string `json:"courseNumber"`
	Title        *string `json:"title"`
}

// ParseCourse builds a Course from a course search suggestion
func ParseCourse(raw json.RawMessage) (Course, error) {
	var data courseJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return Course{}, fmt.Errorf("failed to decode course: %w", err)
	}

	var c Course
	var err error
	if c.ID, err = requireString("courseId", data.CourseID); err != nil {
		return Course{}, err
	}
	if c.SubjectID, err = requireString("subjectId", data.SubjectID); err != nil {
		return Course{}, err
	}
	if c.CourseNumber, err = requireString("courseNumber", data.CourseNumber); err != nil {
		return Course{}, err
	}
	if c.Title, err = requireString("title", data.Title); err != nil {
		return Course{}, err
	}
	return c, nil
}

// ParseCourseNode builds a Course from a course node, where the subject is nested
// and the identifier is keyed "id". Title is optional here since the course name
// lookup only needs subject and number.
func ParseCourseNode(raw json.RawMessage) (Course, error) {
	var data courseNodeJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return Course{}, fmt.Errorf("failed to decode course node: %w", err)
	}
	if data.Subject == nil || data.Subject.ID == nil {
		return Course{}, missingField("subject.id")
	}
	number, err := requireString("courseNumber", data.CourseNumber)
	if err != nil {
		return Course{}, err
	}

	c := Course{SubjectID: *data.Subject.ID, CourseNumber: number}
	if data.ID != nil {
		c.ID = *data.ID
	}
	if data.Title != nil {
		c.Title = *data.Title
	}
	return c, nil
}

// ParseInstructorCourse builds a Course from a findCourses node. All keys are required.
func ParseInstructorCourse(raw json.RawMessage) (Course, error) {
	c, err := ParseCourseNode(raw)
	if err != nil {
		return Course{}, err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Course{}, fmt.Errorf("failed to decode course node: %w", err)
	}
	for _, k := range []string{"id", "title"} {
		if _, ok := keys[k]; !ok {
			return Course{}, missingField(k)
		}
	}
	return c, nil
}

// Name returns the display name, e.g. "MATH 1A"
func (c Course) Name() string {
	return strings.TrimSpace(c.SubjectID + " " + c.CourseNumber)
}

// WithTerm returns a copy of the course bound to the given term
func (c Course) WithTerm(t Term) Course {
	c.Term = &t
	return c
}

func (c Course) String() string {
	return fmt.Sprintf("Course %s %s", c.SubjectID, c.CourseNumber)
}

// SortCoursesByNumber orders courses by course number, keeping upstream order for ties
func SortCoursesByNumber(courses []Course) {
	slices.SortStableFunc(courses, func(a, b Course) int {
		return strings.Compare(a.CourseNumber, b.CourseNumber)
	})
}
