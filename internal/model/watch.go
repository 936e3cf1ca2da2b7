package model

import "time"

// WatchedSection is the last known state of a section someone is watching
type WatchedSection struct {
	SectionID     string
	CourseID      string
	CourseName    string
	SectionNumber int
	OpenSeats     int
	TotalSeats    int
	Checksum      string
	UpdatedAt     time.Time
}

// IsOpen reports whether the stored seat count had an opening
func (w WatchedSection) IsOpen() bool {
	return w.OpenSeats > 0
}

// SectionSnapshot records a section's seat counts at a point in time
type SectionSnapshot struct {
	ID         int64
	SectionID  string
	OpenSeats  int
	TotalSeats int
	Checksum   string
	SnapshotAt time.Time
}

// WatchedSectionFrom converts a fetched section into its stored form
func WatchedSectionFrom(s Section, checksum string) WatchedSection {
	return WatchedSection{
		SectionID:     s.ID,
		CourseID:      s.CourseID,
		CourseName:    s.CourseName,
		SectionNumber: s.SectionNumber,
		OpenSeats:     s.OpenSeats,
		TotalSeats:    s.TotalSeats,
		Checksum:      checksum,
	}
}
