package model

import (
	"encoding/json"
	"fmt"
)

// Instructor represents the courses taught by one instructor in a term
type Instructor struct {
	ID      string
	Name    string
	Courses []Course
	Term    *Term
}

type instructorJSON struct {
	ID          *string `json:"id"`
	FindCourses *struct {
		Edges []struct {
			Node json.RawMessage `json:"node"`
		} `json:"edges"`
	} `json:"findCourses"`
}

// ParseInstructor builds an Instructor from the environment node of an instructor
// query. Courses are sorted by course number.
func ParseInstructor(raw json.RawMessage) (Instructor, error) {
	var data instructorJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return Instructor{}, fmt.Errorf("failed to decode instructor: %w", err)
	}
	id, err := requireString("id", data.ID)
	if err != nil {
		return Instructor{}, err
	}
	if data.FindCourses == nil {
		return Instructor{}, missingField("findCourses")
	}

	courses := make([]Course, 0, len(data.FindCourses.Edges))
	for i, edge := range data.FindCourses.Edges {
		if len(edge.Node) == 0 {
			return Instructor{}, missingField(fmt.Sprintf("findCourses.edges[%d].node", i))
		}
		c, err := ParseInstructorCourse(edge.Node)
		if err != nil {
			return Instructor{}, fmt.Errorf("course %d: %w", i, err)
		}
		courses = append(courses, c)
	}
	SortCoursesByNumber(courses)

	return Instructor{
		ID:      id,
		Name:    UnknownName,
		Courses: courses,
	}, nil
}

// WithTerm returns a copy of the instructor with the term set on it and on every course
func (in Instructor) WithTerm(t Term) Instructor {
	courses := make([]Course, len(in.Courses))
	for i, c := range in.Courses {
		courses[i] = c.WithTerm(t)
	}
	in.Courses = courses
	in.Term = &t
	return in
}

// WithName returns a copy of the instructor with the given name
func (in Instructor) WithName(name string) Instructor {
	in.Name = name
	return in
}

func (in Instructor) String() string {
	return fmt.Sprintf("Instructor %s", in.Name)
}
