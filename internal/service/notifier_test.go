package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jjenkins/classwatch/internal/model"
)

type fakeSections map[string]*model.Section

func (f fakeSections) GetSection(_ context.Context, _, sectionID string) *model.Section {
	return f[sectionID]
}

type fakeWatches struct {
	watched  []model.WatchedSection
	saved    map[string]model.WatchedSection
	watchers map[string][]model.User
	saveErr  error
}

func (f *fakeWatches) ListWatched(context.Context) ([]model.WatchedSection, error) {
	return f.watched, nil
}

func (f *fakeWatches) SaveSectionWithSnapshot(_ context.Context, ws model.WatchedSection) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	prev, ok := f.saved[ws.SectionID]
	f.saved[ws.SectionID] = ws
	return !ok || prev.Checksum != ws.Checksum, nil
}

func (f *fakeWatches) Watchers(_ context.Context, sectionID string) ([]model.User, error) {
	return f.watchers[sectionID], nil
}

type sentMail struct {
	to      []string
	subject string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to []string, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierPoll(t *testing.T) {
	opened := model.Section{ID: "s-1", SectionNumber: 32000, OpenSeats: 2, TotalSeats: 30}.WithCourse("c-1", "MATH 1A")
	stillFull := model.Section{ID: "s-2", SectionNumber: 32001, OpenSeats: 0, TotalSeats: 30}.WithCourse("c-1", "MATH 1A")

	watches := &fakeWatches{
		watched: []model.WatchedSection{
			{SectionID: "s-1", CourseID: "c-1", CourseName: "MATH 1A", OpenSeats: 0},
			{SectionID: "s-2", CourseID: "c-1", CourseName: "MATH 1A", OpenSeats: 0},
			{SectionID: "s-3", CourseID: "c-1", CourseName: "MATH 1A", OpenSeats: 0},
		},
		saved: map[string]model.WatchedSection{
			"s-2": model.WatchedSectionFrom(stillFull, SeatChecksum(stillFull)),
		},
		watchers: map[string][]model.User{
			"s-1": {{Username: "ada", Email: "ada@example.com"}, {Username: "alan", Email: "alan@example.com"}},
		},
	}
	mailer := &fakeMailer{}
	notifier := NewNotifier(fakeSections{"s-1": &opened, "s-2": &stillFull}, watches, mailer, quietLogger())

	stats, err := notifier.Poll(context.Background())

	require.NoError(t, err)
	require.Equal(t, &PollStats{Total: 3, Changed: 1, Unchanged: 1, Opened: 1, Notified: 2, Failed: 1}, stats)
	require.Len(t, mailer.sent, 2)
	require.Equal(t, []string{"ada@example.com"}, mailer.sent[0].to)
	require.Equal(t, "MATH 1A section 32000 has open seats", mailer.sent[0].subject)
	require.Equal(t, 2, watches.saved["s-1"].OpenSeats)
	require.Equal(t, "c-1", watches.saved["s-1"].CourseID)
}

func TestNotifierDoesNotRenotifyOpenSection(t *testing.T) {
	open := model.Section{ID: "s-1", OpenSeats: 5}.WithCourse("c-1", "MATH 1A")
	watches := &fakeWatches{
		watched:  []model.WatchedSection{{SectionID: "s-1", CourseID: "c-1", OpenSeats: 3}},
		saved:    map[string]model.WatchedSection{},
		watchers: map[string][]model.User{"s-1": {{Username: "ada"}}},
	}
	notifier := NewNotifier(fakeSections{"s-1": &open}, watches, nil, quietLogger())

	stats, err := notifier.Poll(context.Background())

	require.NoError(t, err)
	require.Equal(t, 0, stats.Opened)
	require.Equal(t, 0, stats.Notified)
}

func TestNotifierKeepsStoredCourseName(t *testing.T) {
	unnamed := model.Section{ID: "s-1", SectionNumber: 32000, OpenSeats: 2, TotalSeats: 30}.WithCourse("c-1", model.UnknownName)
	watches := &fakeWatches{
		watched:  []model.WatchedSection{{SectionID: "s-1", CourseID: "c-1", CourseName: "MATH 1A", OpenSeats: 0}},
		saved:    map[string]model.WatchedSection{},
		watchers: map[string][]model.User{"s-1": {{Username: "ada", Email: "ada@example.com"}}},
	}
	mailer := &fakeMailer{}
	notifier := NewNotifier(fakeSections{"s-1": &unnamed}, watches, mailer, quietLogger())

	stats, err := notifier.Poll(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, stats.Notified)
	require.Equal(t, "MATH 1A", watches.saved["s-1"].CourseName)
	require.Equal(t, "MATH 1A section 32000 has open seats", mailer.sent[0].subject)
	// the fetched section itself is left untouched
	require.Equal(t, model.UnknownName, unnamed.CourseName)
}

func TestNotifierMailFailureAndSaveFailure(t *testing.T) {
	open := model.Section{ID: "s-1", OpenSeats: 1}.WithCourse("c-1", "MATH 1A")
	watches := &fakeWatches{
		watched:  []model.WatchedSection{{SectionID: "s-1", CourseID: "c-1"}},
		saved:    map[string]model.WatchedSection{},
		watchers: map[string][]model.User{"s-1": {{Username: "ada", Email: "ada@example.com"}}},
	}
	notifier := NewNotifier(fakeSections{"s-1": &open}, watches, &fakeMailer{err: errors.New("smtp down")}, quietLogger())

	stats, err := notifier.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Opened)
	require.Equal(t, 0, stats.Notified)

	watches.saveErr = errors.New("db down")
	stats, err = notifier.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
}

func TestNotifierScheduleRejectsBadSpec(t *testing.T) {
	notifier := NewNotifier(fakeSections{}, &fakeWatches{saved: map[string]model.WatchedSection{}}, nil, quietLogger())
	err := notifier.Schedule(context.Background(), "not a schedule")
	require.Error(t, err)
}

func TestSeatChecksum(t *testing.T) {
	a := model.Section{OpenSeats: 1, TotalSeats: 30, Days: "MW"}
	b := a
	require.Equal(t, SeatChecksum(a), SeatChecksum(b))
	b.OpenSeats = 0
	require.NotEqual(t, SeatChecksum(a), SeatChecksum(b))
}
