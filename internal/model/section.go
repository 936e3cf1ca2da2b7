package model

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
)

// Section represents one schedulable section of a course. Only the first meeting
// is modelled; ExtraMeetings counts the meetings that were dropped.
type Section struct {
	ID              string
	SectionNumber   int
	Instructors     []string
	InstructionMode sql.NullString
	Careers         []string
	OpenSeats       int
	TotalSeats      int
	Campus          sql.NullString
	Component       sql.NullString
	FreeTextbook    bool
	LowCostTextbook bool

	Room      sql.NullString
	Building  sql.NullString
	Days      string
	StartDate civil.Date
	EndDate   civil.Date
	StartTime civil.Time
	EndTime   civil.Time

	ExtraMeetings int

	// set by WithCourse
	CourseName string
	CourseID   string
}

type sectionJSON struct {
	ID                 *string       `json:"id"`
	RegistrationNumber flexInt       `json:"registrationNumber"`
	Instructors        []string      `json:"instructors"`
	InstructionMode    *string       `json:"instructionMode"`
	Careers            []string      `json:"careers"`
	OpenSeats          flexInt       `json:"openSeats"`
	TotalSeats         flexInt       `json:"totalSeats"`
	Campus             *string       `json:"campus"`
	Component          *string       `json:"component"`
	FreeTextbook       *bool         `json:"freeTextbookAvailable"`
	LowCostTextbook    *bool         `json:"lowCostTextbookAvailable"`
	Meetings           []meetingJSON `json:"meetings"`
}

type meetingJSON struct {
	Room         json.RawMessage `json:"room"`
	BuildingCode *string         `json:"buildingCode"`
	Days         *string         `json:"days"`
	StartDate    *string         `json:"startDate"`
	EndDate      *string         `json:"endDate"`
	StartTime    flexInt         `json:"startTime"`
	EndTime      flexInt         `json:"endTime"`
}

// ParseSection builds a Section from a getCourseSections node or a section query result
func ParseSection(raw json.RawMessage) (Section, error) {
	var data sectionJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return Section{}, fmt.Errorf("failed to decode section: %w", err)
	}

	id, err := requireString("id", data.ID)
	if err != nil {
		return Section{}, err
	}
	if !data.RegistrationNumber.Set {
		return Section{}, missingField("registrationNumber")
	}
	if len(data.Meetings) == 0 {
		return Section{}, missingField("meetings")
	}

	s := Section{
		ID:              id,
		SectionNumber:   data.RegistrationNumber.Value,
		Instructors:     orEmpty(data.Instructors),
		InstructionMode: nullString(data.InstructionMode),
		Careers:         orEmpty(data.Careers),
		OpenSeats:       max(data.OpenSeats.Value, 0),
		TotalSeats:      max(data.TotalSeats.Value, 0),
		Campus:          nullString(data.Campus),
		Component:       nullString(data.Component),
		FreeTextbook:    data.FreeTextbook != nil && *data.FreeTextbook,
		LowCostTextbook: data.LowCostTextbook != nil && *data.LowCostTextbook,
		ExtraMeetings:   len(data.Meetings) - 1,
	}

	m := data.Meetings[0]
	s.Room = falsyToNull(m.Room)
	s.Building = nullString(m.BuildingCode)
	if m.Days != nil {
		s.Days = *m.Days
	}

	if s.StartDate, err = parseDate("startDate", m.StartDate); err != nil {
		return Section{}, err
	}
	if s.EndDate, err = parseDate("endDate", m.EndDate); err != nil {
		return Section{}, err
	}
	if s.StartTime, err = ParseClock(m.StartTime.Value); err != nil {
		return Section{}, invalidField("startTime", err)
	}
	if s.EndTime, err = ParseClock(m.EndTime.Value); err != nil {
		return Section{}, invalidField("endTime", err)
	}

	return s, nil
}

// ParseClock converts a packed HHMM integer (1330 is 13:30) into a wall-clock time
func ParseClock(hhmm int) (civil.Time, error) {
	t := civil.Time{Hour: hhmm / 100, Minute: hhmm % 100}
	if hhmm < 0 || !t.IsValid() {
		return civil.Time{}, fmt.Errorf("%d is not a valid HHMM time", hhmm)
	}
	return t, nil
}

func parseDate(name string, s *string) (civil.Date, error) {
	if s == nil {
		return civil.Date{}, missingField(name)
	}
	d, err := civil.ParseDate(*s)
	if err != nil {
		return civil.Date{}, invalidField(name, err)
	}
	return d, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// IsOpen reports whether at least one seat is available
func (s Section) IsOpen() bool {
	return s.OpenSeats > 0
}

// IsFull reports whether no seats are available
func (s Section) IsFull() bool {
	return s.OpenSeats < 1
}

// WithCourse returns a copy of the section enriched with its course identity
func (s Section) WithCourse(courseID, courseName string) Section {
	s.CourseID = courseID
	s.CourseName = courseName
	return s
}

// Location formats building and room, or "TBA" when neither is known
func (s Section) Location() string {
	switch {
	case s.Building.Valid && s.Room.Valid:
		return s.Building.String + " " + s.Room.String
	case s.Room.Valid:
		return s.Room.String
	case s.Building.Valid:
		return s.Building.String
	default:
		return "TBA"
	}
}

func (s Section) String() string {
	return fmt.Sprintf("Section %d", s.SectionNumber)
}
