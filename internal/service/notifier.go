package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/jjenkins/classwatch/internal/model"
)

// SectionSource fetches the live state of a section
type SectionSource interface {
	GetSection(ctx context.Context, courseID, sectionID string) *model.Section
}

// WatchRepository is the storage the notifier polls and updates
type WatchRepository interface {
	ListWatched(ctx context.Context) ([]model.WatchedSection, error)
	SaveSectionWithSnapshot(ctx context.Context, ws model.WatchedSection) (bool, error)
	Watchers(ctx context.Context, sectionID string) ([]model.User, error)
}

// PollStats tracks the outcome of one poll over the watched sections
type PollStats struct {
	Total     int
	Changed   int
	Unchanged int
	Opened    int
	Notified  int
	Failed    int
}

// Opening is a watched section that went from full to open during a poll
type Opening struct {
	Previous model.WatchedSection
	Current  model.Section
}

// Notifier re-fetches watched sections, records seat changes and tells watchers
// when a full section opens up
type Notifier struct {
	sections SectionSource
	watches  WatchRepository
	mailer   Mailer
	logger   *slog.Logger
}

// NewNotifier creates a Notifier. mailer may be nil, in which case openings are only logged.
func NewNotifier(sections SectionSource, watches WatchRepository, mailer Mailer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sections: sections,
		watches:  watches,
		mailer:   mailer,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Poll checks every watched section once
func (n *Notifier) Poll(ctx context.Context) (*PollStats, error) {
	stats := &PollStats{}

	watched, err := n.watches.ListWatched(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched sections: %w", err)
	}
	stats.Total = len(watched)
	n.logger.InfoContext(ctx, "polling watched sections", slog.Int("count", stats.Total))

	for idx, prev := range watched {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		progress := fmt.Sprintf("[%d/%d]", idx+1, stats.Total)
		current := n.sections.GetSection(ctx, prev.CourseID, prev.SectionID)
		if current == nil {
			n.logger.WarnContext(ctx, progress+" section unavailable",
				slog.String("section_id", prev.SectionID), slog.String("course", prev.CourseName))
			stats.Failed++
			continue
		}
		if current.CourseName == model.UnknownName && prev.CourseName != "" {
			// the name lookup failed this time; keep the one already stored
			named := current.WithCourse(current.CourseID, prev.CourseName)
			current = &named
		}
		if current.ExtraMeetings > 0 {
			n.logger.DebugContext(ctx, progress+" section has additional meetings that are not tracked",
				slog.String("section_id", prev.SectionID), slog.Int("extra_meetings", current.ExtraMeetings))
		}

		changed, err := n.watches.SaveSectionWithSnapshot(ctx, model.WatchedSectionFrom(*current, SeatChecksum(*current)))
		if err != nil {
			n.logger.ErrorContext(ctx, progress+" failed to save section",
				slog.String("section_id", prev.SectionID), slog.Any("error", err))
			stats.Failed++
			continue
		}
		if changed {
			stats.Changed++
		} else {
			stats.Unchanged++
		}

		if !prev.IsOpen() && current.IsOpen() {
			stats.Opened++
			stats.Notified += n.notify(ctx, Opening{Previous: prev, Current: *current})
		}
	}

	return stats, nil
}

func (n *Notifier) notify(ctx context.Context, o Opening) int {
	watchers, err := n.watches.Watchers(ctx, o.Current.ID)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to load watchers",
			slog.String("section_id", o.Current.ID), slog.Any("error", err))
		return 0
	}

	subject := fmt.Sprintf("%s section %d has open seats", o.Current.CourseName, o.Current.SectionNumber)
	body := fmt.Sprintf("%s section %d now has %d of %d seats open.\n\nInstructors: %v\nDays: %s\nLocation: %s\n",
		o.Current.CourseName,
		o.Current.SectionNumber,
		o.Current.OpenSeats,
		o.Current.TotalSeats,
		o.Current.Instructors,
		o.Current.Days,
		o.Current.Location(),
	)

	notified := 0
	for _, u := range watchers {
		n.logger.InfoContext(ctx, "section opened",
			slog.String("user", u.Username),
			slog.String("course", o.Current.CourseName),
			slog.Int("section", o.Current.SectionNumber),
			slog.Int("open_seats", o.Current.OpenSeats))

		if n.mailer == nil {
			notified++
			continue
		}
		if err := n.mailer.Send(ctx, []string{u.Email}, subject, body); err != nil {
			n.logger.ErrorContext(ctx, "failed to email watcher",
				slog.String("user", u.Username), slog.Any("error", err))
			continue
		}
		notified++
	}
	return notified
}

// PrintSummary logs the poll statistics
func (n *Notifier) PrintSummary(stats *PollStats) {
	n.logger.Info("=== Poll Summary ===",
		slog.Int("total", stats.Total),
		slog.Int("changed", stats.Changed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("opened", stats.Opened),
		slog.Int("notified", stats.Notified),
		slog.Int("failed", stats.Failed),
	)
}

// Schedule polls on a cron spec such as "@every 5m" until ctx is cancelled.
// A poll still running when the next one is due is skipped.
func (n *Notifier) Schedule(ctx context.Context, spec string) error {
	c := cron.New(
		cron.WithLogger(cronLogger{logger: n.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: n.logger})),
	)

	_, err := c.AddFunc(spec, func() {
		stats, err := n.Poll(ctx)
		if err != nil {
			n.logger.ErrorContext(ctx, "poll failed", slog.Any("error", err))
		}
		if stats != nil {
			n.PrintSummary(stats)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	n.logger.InfoContext(ctx, "notifier scheduled", slog.String("schedule", spec))
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
