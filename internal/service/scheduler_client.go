package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jjenkins/classwatch/internal/model"
)

const (
	// DefaultEnvironment is the tenant name of the college on the scheduling service
	DefaultEnvironment = "deltacollege"
	// DefaultCount is the page size used for sections and search results
	DefaultCount = 100
	// DefaultCacheSize bounds each memo cache
	DefaultCacheSize = 128

	instructorCount = 100
)

// ClientConfig configures a SchedulerClient. Zero values fall back to defaults.
type ClientConfig struct {
	Environment string
	CacheSize   int
	Logger      *slog.Logger
}

type searchKey struct {
	query    string
	count    int
	termCode int
}

type instructorKey struct {
	name     string
	termCode int
}

// SchedulerClient reads terms, courses, sections and instructors from the
// scheduling service. Its methods never return errors: failures are logged and
// reported as empty or nil results. It is safe for concurrent use.
type SchedulerClient struct {
	environment string
	transport   Transport
	logger      *slog.Logger

	courseNames *lru.Cache[string, string]
	searches    *lru.Cache[searchKey, []model.Course]
	instructors *lru.Cache[instructorKey, model.Instructor]
	group       singleflight.Group

	termMu      sync.Mutex
	termLoaded  bool
	currentTerm *model.Term
}

// NewSchedulerClient creates a client on top of the given transport
func NewSchedulerClient(transport Transport, cfg ClientConfig) (*SchedulerClient, error) {
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	courseNames, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create course name cache: %w", err)
	}
	searches, err := lru.New[searchKey, []model.Course](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	instructors, err := lru.New[instructorKey, model.Instructor](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create instructor cache: %w", err)
	}

	return &SchedulerClient{
		environment: cfg.Environment,
		transport:   transport,
		logger:      cfg.Logger.With(slog.String("component", "scheduler"), slog.String("environment", cfg.Environment)),
		courseNames: courseNames,
		searches:    searches,
		instructors: instructors,
	}, nil
}

// GetTerms returns every searchable term, newest first
func (c *SchedulerClient) GetTerms(ctx context.Context) []model.Term {
	terms, err := c.fetchTerms(ctx)
	if err != nil {
		c.logFailure(ctx, "failed to fetch terms", err)
		return []model.Term{}
	}
	return terms
}

// CurrentTerm returns the newest term, or nil when there is none. The first
// successful lookup is kept for the lifetime of the client; failures are retried
// on the next call.
func (c *SchedulerClient) CurrentTerm(ctx context.Context) *model.Term {
	c.termMu.Lock()
	defer c.termMu.Unlock()

	if !c.termLoaded {
		terms, err := c.fetchTerms(ctx)
		if err != nil {
			c.logFailure(ctx, "failed to resolve current term", err)
			return nil
		}
		c.termLoaded = true
		if len(terms) > 0 {
			c.currentTerm = &terms[0]
		}
	}

	if c.currentTerm == nil {
		return nil
	}
	t := *c.currentTerm
	return &t
}

// GetCourseName returns the display name of a course, e.g. "MATH 1A"
func (c *SchedulerClient) GetCourseName(ctx context.Context, courseID string) (string, bool) {
	name, err := memoize(ctx, c, c.courseNames, courseID, "name:"+courseID, func(ctx context.Context) (string, error) {
		return c.fetchCourseName(ctx, courseID)
	})
	if err != nil {
		c.logFailure(ctx, "failed to fetch course name", err, slog.String("course_id", courseID))
		return "", false
	}
	return name, true
}

// GetSections lists the sections of a course in upstream order, each tagged with
// the course id and display name
func (c *SchedulerClient) GetSections(ctx context.Context, courseID string, count int, includeFull bool) []model.Section {
	sections, err := c.fetchSections(ctx, courseID, count, includeFull)
	if err != nil {
		c.logFailure(ctx, "failed to fetch sections", err, slog.String("course_id", courseID))
		return []model.Section{}
	}
	return sections
}

// GetSectionsDefault lists up to DefaultCount sections, including full ones
func (c *SchedulerClient) GetSectionsDefault(ctx context.Context, courseID string) []model.Section {
	return c.GetSections(ctx, courseID, DefaultCount, true)
}

// SearchCourse suggests courses matching a prefix. A nil term means the current
// term. Results are ordered by course number as a plain string.
func (c *SchedulerClient) SearchCourse(ctx context.Context, query string, count int, term *model.Term) []model.Course {
	if term == nil {
		if term = c.CurrentTerm(ctx); term == nil {
			c.logger.WarnContext(ctx, "no current term to search in", slog.String("query", query))
			return []model.Course{}
		}
	}

	key := searchKey{query: query, count: count, termCode: term.Code}
	flight := fmt.Sprintf("search:%d:%d:%s", key.termCode, key.count, key.query)
	courses, err := memoize(ctx, c, c.searches, key, flight, func(ctx context.Context) ([]model.Course, error) {
		return c.fetchCourses(ctx, key)
	})
	if err != nil {
		c.logFailure(ctx, "failed to search courses", err, slog.String("query", query), slog.Int("term", term.Code))
		return []model.Course{}
	}
	return slices.Clone(courses)
}

// GetSection fetches one section of a course, or nil when it cannot be loaded
func (c *SchedulerClient) GetSection(ctx context.Context, courseID, sectionID string) *model.Section {
	section, err := c.fetchSection(ctx, courseID, sectionID)
	if err != nil {
		c.logFailure(ctx, "failed to fetch section", err,
			slog.String("course_id", courseID), slog.String("section_id", sectionID))
		return nil
	}
	return &section
}

// GetInstructor lists the courses an instructor teaches in a term. A nil term
// means the current term; the resolved term is set on the instructor and on
// every course.
func (c *SchedulerClient) GetInstructor(ctx context.Context, name string, term *model.Term) *model.Instructor {
	if term == nil {
		if term = c.CurrentTerm(ctx); term == nil {
			c.logger.WarnContext(ctx, "no current term to look up instructor in", slog.String("instructor", name))
			return nil
		}
	}

	key := instructorKey{name: name, termCode: term.Code}
	flight := fmt.Sprintf("instructor:%d:%s", key.termCode, key.name)
	resolved := *term
	instructor, err := memoize(ctx, c, c.instructors, key, flight, func(ctx context.Context) (model.Instructor, error) {
		return c.fetchInstructor(ctx, name, resolved)
	})
	if err != nil {
		c.logFailure(ctx, "failed to fetch instructor", err, slog.String("instructor", name), slog.Int("term", term.Code))
		return nil
	}
	// rebuild the term pointers so callers never share them with the cache
	out := instructor.WithTerm(*instructor.Term)
	return &out
}

func (c *SchedulerClient) fetchTerms(ctx context.Context) ([]model.Term, error) {
	data, err := c.transport.Execute(ctx, opTerms, termsQuery, map[string]any{
		"environment": c.environment,
	})
	if err != nil {
		return nil, err
	}

	raw, err := dig(data, "environment", "courseSearchTerms")
	if err != nil {
		return nil, shapeError(opTerms, err)
	}
	items, err := list(raw)
	if err != nil {
		return nil, shapeError(opTerms, err)
	}

	terms := make([]model.Term, 0, len(items))
	for _, item := range items {
		t, err := model.ParseTerm(item)
		if err != nil {
			return nil, shapeError(opTerms, err)
		}
		terms = append(terms, t)
	}
	model.SortTermsNewestFirst(terms)
	return terms, nil
}

func (c *SchedulerClient) fetchCourseName(ctx context.Context, courseID string) (string, error) {
	data, err := c.transport.Execute(ctx, opCourseName, courseNameQuery, map[string]any{
		"courseId": courseID,
	})
	if err != nil {
		return "", err
	}

	raw, err := dig(data, "course")
	if err != nil {
		return "", shapeError(opCourseName, err)
	}
	course, err := model.ParseCourseNode(raw)
	if err != nil {
		return "", shapeError(opCourseName, err)
	}
	return course.SubjectID + " " + course.CourseNumber, nil
}

// courseNameOrPlaceholder is used for enrichment, where a failed lookup must not
// discard otherwise valid sections
func (c *SchedulerClient) courseNameOrPlaceholder(ctx context.Context, courseID string) string {
	if name, ok := c.GetCourseName(ctx, courseID); ok {
		return name
	}
	return model.UnknownName
}

func (c *SchedulerClient) fetchSections(ctx context.Context, courseID string, count int, includeFull bool) ([]model.Section, error) {
	data, err := c.transport.Execute(ctx, opCourseSections, courseSectionsQuery, map[string]any{
		"environment":        c.environment,
		"courseId":           courseID,
		"count":              count,
		"cursor":             nil,
		"facets":             []any{},
		"includeFullCourses": includeFull,
		"registrationNumber": nil,
		"freeTextbook":       nil,
		"lowCostTextbook":    nil,
		"instructor":         "",
	})
	if err != nil {
		return nil, err
	}

	conn, err := dig(data, "environment", "getCourseSections")
	if err != nil {
		return nil, shapeError(opCourseSections, err)
	}
	nodes, err := edgeNodes(conn)
	if err != nil {
		return nil, shapeError(opCourseSections, err)
	}

	parsed := make([]model.Section, 0, len(nodes))
	for i, node := range nodes {
		s, err := model.ParseSection(node)
		if err != nil {
			return nil, shapeError(opCourseSections, fmt.Errorf("section %d: %w", i, err))
		}
		parsed = append(parsed, s)
	}
	if len(parsed) == 0 {
		return parsed, nil
	}

	courseName := c.courseNameOrPlaceholder(ctx, courseID)
	sections := make([]model.Section, len(parsed))
	for i, s := range parsed {
		sections[i] = s.WithCourse(courseID, courseName)
	}
	return sections, nil
}

func (c *SchedulerClient) fetchCourses(ctx context.Context, key searchKey) ([]model.Course, error) {
	data, err := c.transport.Execute(ctx, opSearchCourse, searchCourseQuery, map[string]any{
		"environment": c.environment,
		"termCode":    strconv.Itoa(key.termCode),
		"prefix":      key.query,
		"size":        key.count,
	})
	if err != nil {
		return nil, err
	}

	raw, err := dig(data, "environment", "courses")
	if err != nil {
		return nil, shapeError(opSearchCourse, err)
	}
	items, err := list(raw)
	if err != nil {
		return nil, shapeError(opSearchCourse, err)
	}

	courses := make([]model.Course, 0, len(items))
	for _, item := range items {
		course, err := model.ParseCourse(item)
		if err != nil {
			return nil, shapeError(opSearchCourse, err)
		}
		courses = append(courses, course)
	}
	model.SortCoursesByNumber(courses)
	return courses, nil
}

func (c *SchedulerClient) fetchSection(ctx context.Context, courseID, sectionID string) (model.Section, error) {
	data, err := c.transport.Execute(ctx, opSection, sectionQuery, map[string]any{
		"environment": c.environment,
		"courseId":    courseID,
		"sectionId":   sectionID,
	})
	if err != nil {
		return model.Section{}, err
	}

	raw, err := dig(data, "section")
	if err != nil {
		return model.Section{}, shapeError(opSection, err)
	}
	section, err := model.ParseSection(raw)
	if err != nil {
		return model.Section{}, shapeError(opSection, err)
	}
	return section.WithCourse(courseID, c.courseNameOrPlaceholder(ctx, courseID)), nil
}

func (c *SchedulerClient) fetchInstructor(ctx context.Context, name string, term model.Term) (model.Instructor, error) {
	data, err := c.transport.Execute(ctx, opInstructor, instructorQuery, map[string]any{
		"environment": c.environment,
		"termCode":    strconv.Itoa(term.Code),
		"count":       instructorCount,
		"cursor":      nil,
		"facets": []map[string]any{
			{"facetField": "INSTRUCTOR", "selectedFilterValues": []string{name}},
		},
		"includeFullCourses": true,
	})
	if err != nil {
		return model.Instructor{}, err
	}

	raw, err := dig(data, "environment")
	if err != nil {
		return model.Instructor{}, shapeError(opInstructor, err)
	}
	instructor, err := model.ParseInstructor(raw)
	if err != nil {
		return model.Instructor{}, shapeError(opInstructor, err)
	}
	return instructor.WithTerm(term).WithName(name), nil
}

// memoize returns a cached value or runs fetch once per key, sharing the result
// with concurrent callers. Failures are not cached. The shared fetch ignores the
// first caller's cancellation and is bounded by the transport timeout instead.
func memoize[K comparable, V any](ctx context.Context, c *SchedulerClient, cache *lru.Cache[K, V], key K, flight string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(flight, func() (any, error) {
		if v, ok := cache.Get(key); ok {
			return v, nil
		}
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		cache.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func shapeError(op string, err error) error {
	if errors.Is(err, errNullNode) {
		return &Error{Op: op, Kind: KindNotFound, Err: err}
	}
	return &Error{Op: op, Kind: KindShape, Err: err}
}

// logFailure logs missing records and rejected queries at warn, and transport
// failures and unexpected payloads at error, each tagged with its kind
func (c *SchedulerClient) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	kind := KindOf(err)
	attrs = append(attrs, slog.String("kind", string(kind)), slog.Any("error", err))
	switch {
	case kind == KindShape:
		c.logger.ErrorContext(ctx, msg+": unexpected response shape", attrs...)
	case Transient(err):
		c.logger.ErrorContext(ctx, msg, attrs...)
	default:
		c.logger.WarnContext(ctx, msg, attrs...)
	}
}
