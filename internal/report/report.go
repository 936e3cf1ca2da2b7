// Package report renders catalog lookups for the command line, as tables for a
// terminal or as CSV for spreadsheets.
package report

import (
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gocarina/gocsv"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jjenkins/classwatch/internal/model"
)

// SectionRow is the flat form of a section written to CSV
type SectionRow struct {
	CourseID        string `csv:"course_id"`
	CourseName      string `csv:"course_name"`
	SectionID       string `csv:"section_id"`
	SectionNumber   int    `csv:"section_number"`
	Instructors     string `csv:"instructors"`
	Days            string `csv:"days"`
	StartTime       string `csv:"start_time"`
	EndTime         string `csv:"end_time"`
	StartDate       string `csv:"start_date"`
	EndDate         string `csv:"end_date"`
	Location        string `csv:"location"`
	InstructionMode string `csv:"instruction_mode"`
	Campus          string `csv:"campus"`
	OpenSeats       int    `csv:"open_seats"`
	TotalSeats      int    `csv:"total_seats"`
	ExtraMeetings   int    `csv:"extra_meetings"`
}

// SectionRows flattens sections in order
func SectionRows(sections []model.Section) []*SectionRow {
	rows := make([]*SectionRow, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, &SectionRow{
			CourseID:        s.CourseID,
			CourseName:      s.CourseName,
			SectionID:       s.ID,
			SectionNumber:   s.SectionNumber,
			Instructors:     strings.Join(s.Instructors, "; "),
			Days:            s.Days,
			StartTime:       clock(s.StartTime),
			EndTime:         clock(s.EndTime),
			StartDate:       date(s.StartDate),
			EndDate:         date(s.EndDate),
			Location:        s.Location(),
			InstructionMode: s.InstructionMode.String,
			Campus:          s.Campus.String,
			OpenSeats:       s.OpenSeats,
			TotalSeats:      s.TotalSeats,
			ExtraMeetings:   s.ExtraMeetings,
		})
	}
	return rows
}

// WriteSectionsCSV writes one header line and one line per section
func WriteSectionsCSV(w io.Writer, sections []model.Section) error {
	if err := gocsv.Marshal(SectionRows(sections), w); err != nil {
		return fmt.Errorf("failed to write sections csv: %w", err)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// Terms prints terms newest first, marking the current one
func Terms(w io.Writer, terms []model.Term) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Name", "ID", ""})
	for i, term := range terms {
		current := ""
		if i == 0 {
			current = "current"
		}
		t.AppendRow(table.Row{term.Code, term.Name, term.ID, current})
	}
	t.Render()
}

// Courses prints course search results
func Courses(w io.Writer, courses []model.Course) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Course", "Title", "ID"})
	for _, c := range courses {
		t.AppendRow(table.Row{c.Name(), c.Title, c.ID})
	}
	t.AppendFooter(table.Row{"", "Total", len(courses)})
	t.Render()
}

// Sections prints a course's sections with their seat status
func Sections(w io.Writer, sections []model.Section) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Section", "Instructors", "Days", "Time", "Location", "Seats", "ID"})
	for _, s := range sections {
		t.AppendRow(table.Row{s.SectionNumber, instructors(s.Instructors), s.Days, timeRange(s), s.Location(), seats(s), s.ID})
	}
	t.Render()
}

// Section prints every field of one section
func Section(w io.Writer, s model.Section) {
	t := newTable(w)
	t.AppendHeader(table.Row{s.CourseName, s.String()})
	t.AppendRows([]table.Row{
		{"ID", s.ID},
		{"Instructors", instructors(s.Instructors)},
		{"Instruction mode", s.InstructionMode.String},
		{"Component", s.Component.String},
		{"Campus", s.Campus.String},
		{"Careers", strings.Join(s.Careers, ", ")},
		{"Days", s.Days},
		{"Time", timeRange(s)},
		{"Dates", date(s.StartDate) + " to " + date(s.EndDate)},
		{"Location", s.Location()},
		{"Seats", seats(s)},
		{"Free textbook", s.FreeTextbook},
		{"Low cost textbook", s.LowCostTextbook},
	})
	if s.ExtraMeetings > 0 {
		t.AppendRow(table.Row{"Other meetings", fmt.Sprintf("%d not shown", s.ExtraMeetings)})
	}
	t.Render()
}

// Instructor prints the courses an instructor teaches in a term
func Instructor(w io.Writer, in model.Instructor) {
	t := newTable(w)
	title := in.Name
	if in.Term != nil {
		title += " (" + in.Term.Name + ")"
	}
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Course", "Title", "ID"})
	for _, c := range in.Courses {
		t.AppendRow(table.Row{c.Name(), c.Title, c.ID})
	}
	t.Render()
}

func instructors(names []string) string {
	if len(names) == 0 {
		return "Staff"
	}
	return strings.Join(names, ", ")
}

func seats(s model.Section) string {
	if s.IsFull() {
		return fmt.Sprintf("FULL (%d)", s.TotalSeats)
	}
	return fmt.Sprintf("%d / %d", s.OpenSeats, s.TotalSeats)
}

func timeRange(s model.Section) string {
	if s.StartTime == s.EndTime {
		return "TBA"
	}
	return clock(s.StartTime) + "-" + clock(s.EndTime)
}

func clock(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func date(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}
