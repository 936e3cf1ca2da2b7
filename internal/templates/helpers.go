package templates

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jjenkins/classwatch/internal/model"
)

//go:generate templ generate

// PageContext carries the per-request data every page shows
type PageContext struct {
	Title     string
	Username  string
	Flash     string
	CSRFToken string
}

// LoggedIn reports whether a user is signed in
func (p PageContext) LoggedIn() bool {
	return p.Username != ""
}

func (p PageContext) documentTitle() string {
	if p.Title == "" {
		return "classwatch"
	}
	return p.Title + " | classwatch"
}

// AuthForm holds the values echoed back into a login or registration form
type AuthForm struct {
	Username string
	Email    string
	Error    string
}

// HomeMetrics holds the watchlist figures shown under the search form
type HomeMetrics struct {
	HasData         bool
	WatchedSections int
	OpenSections    int
	TotalUsers      int
	MostWatched     string
}

func (m HomeMetrics) summary() string {
	return fmt.Sprintf("%d sections watched by %d users, %d currently open.",
		m.WatchedSections, m.TotalUsers, m.OpenSections)
}

// SearchResults is what a submitted search produced
type SearchResults struct {
	Query    string
	Term     *model.Term
	Courses  []model.Course
	Searched bool
}

// SectionView is the data behind the section detail page
type SectionView struct {
	Section  *model.Section
	Watching bool
}

func (v SectionView) toggleURL() string {
	if v.Watching {
		return SectionURL(v.Section.CourseID, v.Section.ID) + "/unwatch"
	}
	return SectionURL(v.Section.CourseID, v.Section.ID) + "/watch"
}

func (v SectionView) toggleLabel() string {
	if v.Watching {
		return "Stop watching"
	}
	return "Watch this section"
}

type detailField struct {
	Label string
	Value string
}

// details lists the populated descriptive fields of a section
func details(s model.Section) []detailField {
	fields := []detailField{
		{"Instructors", instructorList(s.Instructors)},
		{"Instruction mode", s.InstructionMode.String},
		{"Component", s.Component.String},
		{"Campus", s.Campus.String},
		{"Careers", strings.Join(s.Careers, ", ")},
		{"Days", s.Days},
		{"Time", timeRange(s)},
		{"Dates", s.StartDate.String() + " to " + s.EndDate.String()},
		{"Location", s.Location()},
	}
	switch {
	case s.FreeTextbook:
		fields = append(fields, detailField{"Textbook", "Free textbook available"})
	case s.LowCostTextbook:
		fields = append(fields, detailField{"Textbook", "Low cost textbook available"})
	}

	out := fields[:0]
	for _, f := range fields {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// CourseURL links to a course's section list
func CourseURL(courseID string) string {
	return "/courses/" + url.PathEscape(courseID)
}

// SectionURL links to a section's detail page
func SectionURL(courseID, sectionID string) string {
	return CourseURL(courseID) + "/sections/" + url.PathEscape(sectionID)
}

// HistoryURL links to a watched section's seat history
func HistoryURL(sectionID string) string {
	return "/sections/" + url.PathEscape(sectionID) + "/history"
}

func sectionHeading(courseName string, number int) string {
	return fmt.Sprintf("%s section %d", courseName, number)
}

func openSeats(open, total int) string {
	return fmt.Sprintf("%d / %d open", open, total)
}

func fullSeats(total int) string {
	return fmt.Sprintf("Full (%d seats)", total)
}

func extraMeetings(n int) string {
	return fmt.Sprintf("This section has %d more meeting pattern(s) not shown here.", n)
}

func instructorList(names []string) string {
	if len(names) == 0 {
		return "Staff"
	}
	return strings.Join(names, ", ")
}

func timeRange(s model.Section) string {
	if s.StartTime.Hour == 0 && s.StartTime.Minute == 0 && s.EndTime.Hour == 0 && s.EndTime.Minute == 0 {
		return "TBA"
	}
	return clock(s.StartTime.Hour, s.StartTime.Minute) + " - " + clock(s.EndTime.Hour, s.EndTime.Minute)
}

func clock(hour, minute int) string {
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d%s", h12, minute, suffix)
}
