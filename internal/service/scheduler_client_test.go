package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jjenkins/classwatch/internal/model"
)

func TestGetTermsSortsNewestFirst(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opTerms] = termsData
	client := newTestClient(t, stub)

	terms := client.GetTerms(context.Background())

	require.Len(t, terms, 3)
	require.Equal(t, []int{2263, 2253, 2243}, []int{terms[0].Code, terms[1].Code, terms[2].Code})
	require.Equal(t, "deltacollege", stub.vars(opTerms)["environment"])
}

func TestCurrentTermIsCached(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opTerms] = termsData
	client := newTestClient(t, stub)

	first := client.CurrentTerm(context.Background())
	second := client.CurrentTerm(context.Background())

	require.NotNil(t, first)
	require.Equal(t, 2263, first.Code)
	require.Equal(t, first, second)
	require.Equal(t, 1, stub.count(opTerms))
}

func TestCurrentTermRetriesAfterFailure(t *testing.T) {
	stub := newStubTransport()
	stub.errs[opTerms] = &Error{Op: opTerms, Kind: KindTransport}
	client := newTestClient(t, stub)

	require.Nil(t, client.CurrentTerm(context.Background()))

	delete(stub.errs, opTerms)
	stub.responses[opTerms] = termsData
	term := client.CurrentTerm(context.Background())
	require.NotNil(t, term)
	require.Equal(t, 2263, term.Code)
	require.Equal(t, 2, stub.count(opTerms))
}

func TestCurrentTermEmpty(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opTerms] = `{"environment": {"courseSearchTerms": []}}`
	client := newTestClient(t, stub)

	require.Nil(t, client.CurrentTerm(context.Background()))
	require.Nil(t, client.CurrentTerm(context.Background()))
	require.Equal(t, 1, stub.count(opTerms))
}

func TestGetCourseNameIsMemoized(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseName] = courseNameData
	client := newTestClient(t, stub)

	for i := 0; i < 3; i++ {
		name, ok := client.GetCourseName(context.Background(), "c-1")
		require.True(t, ok)
		require.Equal(t, "MATH 1A", name)
	}
	require.Equal(t, 1, stub.count(opCourseName))
	require.Equal(t, "c-1", stub.vars(opCourseName)["courseId"])
}

func TestGetCourseNameConcurrentCallersShareRequest(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseName] = courseNameData
	client := newTestClient(t, stub)

	names := make([]string, 20)
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i], _ = client.GetCourseName(context.Background(), "c-1")
		}(i)
	}
	wg.Wait()

	for _, name := range names {
		require.Equal(t, "MATH 1A", name)
	}
	require.Equal(t, 1, stub.count(opCourseName))
}

func TestGetCourseNameSurvivesFirstCallerCancelling(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseName] = courseNameData
	stub.block = make(chan struct{})
	client := newTestClient(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan string)
	go func() {
		name, _ := client.GetCourseName(ctx, "c-1")
		done <- name
	}()

	require.Eventually(t, func() bool { return stub.count(opCourseName) == 1 }, time.Second, time.Millisecond)
	cancel()
	close(stub.block)
	require.Equal(t, "MATH 1A", <-done)

	// the shared fetch finished and was cached despite the cancellation
	name, ok := client.GetCourseName(context.Background(), "c-1")
	require.True(t, ok)
	require.Equal(t, "MATH 1A", name)
	require.Equal(t, 1, stub.count(opCourseName))
}

func TestGetCourseNameFailureIsNotCached(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseName] = `{"course": null}`
	client := newTestClient(t, stub)

	_, ok := client.GetCourseName(context.Background(), "c-1")
	require.False(t, ok)

	stub.responses[opCourseName] = courseNameData
	name, ok := client.GetCourseName(context.Background(), "c-1")
	require.True(t, ok)
	require.Equal(t, "MATH 1A", name)
	require.Equal(t, 2, stub.count(opCourseName))
}

func TestGetSections(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseSections] = sectionsData
	stub.responses[opCourseName] = courseNameData
	client := newTestClient(t, stub)

	sections := client.GetSectionsDefault(context.Background(), "c-1")

	require.Len(t, sections, 2)
	require.Equal(t, "s-2", sections[0].ID)
	require.Equal(t, "s-1", sections[1].ID)

	name, ok := client.GetCourseName(context.Background(), "c-1")
	require.True(t, ok)
	for _, s := range sections {
		require.Equal(t, name, s.CourseName)
		require.Equal(t, "c-1", s.CourseID)
	}
	require.True(t, sections[0].IsFull())
	require.False(t, sections[0].Room.Valid)
	require.True(t, sections[1].IsOpen())
	require.Equal(t, 1, stub.count(opCourseName))

	vars := stub.vars(opCourseSections)
	require.Equal(t, 100, vars["count"])
	require.Equal(t, true, vars["includeFullCourses"])
	require.Equal(t, "", vars["instructor"])
	require.Nil(t, vars["cursor"])
}

func TestGetSectionsUnknownCourseName(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseSections] = sectionsData
	stub.responses[opCourseName] = `{"course": null}`
	client := newTestClient(t, stub)

	sections := client.GetSections(context.Background(), "c-1", 10, false)

	require.Len(t, sections, 2)
	require.Equal(t, model.UnknownName, sections[0].CourseName)
	require.Equal(t, 10, stub.vars(opCourseSections)["count"])
	require.Equal(t, false, stub.vars(opCourseSections)["includeFullCourses"])
}

func TestGetSectionsBadRecordYieldsEmpty(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opCourseSections] = `{"environment": {"getCourseSections": {"edges": [{"node": {"registrationNumber": 1}}]}}}`
	client := newTestClient(t, stub)

	sections := client.GetSections(context.Background(), "c-1", 10, true)
	require.NotNil(t, sections)
	require.Empty(t, sections)
}

func TestSearchCourseKeepsLexicographicOrder(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opTerms] = termsData
	stub.responses[opSearchCourse] = searchData
	client := newTestClient(t, stub)

	courses := client.SearchCourse(context.Background(), "math", DefaultCount, nil)

	require.Len(t, courses, 3)
	require.Equal(t, []string{"101", "20", "9"}, []string{courses[0].CourseNumber, courses[1].CourseNumber, courses[2].CourseNumber})

	vars := stub.vars(opSearchCourse)
	require.Equal(t, "2263", vars["termCode"])
	require.Equal(t, "math", vars["prefix"])
	require.Equal(t, 100, vars["size"])
}

func TestSearchCourseIsMemoizedPerKey(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opSearchCourse] = searchData
	client := newTestClient(t, stub)
	term := &model.Term{Code: 2263, Name: "Spring 2026", ID: "t-2263"}

	first := client.SearchCourse(context.Background(), "math", 10, term)
	first[0].Title = "changed"
	second := client.SearchCourse(context.Background(), "math", 10, term)
	require.Equal(t, 1, stub.count(opSearchCourse))
	require.Equal(t, "Statistics", second[0].Title)

	client.SearchCourse(context.Background(), "math", 20, term)
	client.SearchCourse(context.Background(), "engl", 10, term)
	client.SearchCourse(context.Background(), "math", 10, &model.Term{Code: 2253})
	require.Equal(t, 4, stub.count(opSearchCourse))
	require.Equal(t, 0, stub.count(opTerms))
}

func TestSearchCourseWithoutTerm(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opTerms] = `{"environment": {"courseSearchTerms": []}}`
	client := newTestClient(t, stub)

	courses := client.SearchCourse(context.Background(), "math", 10, nil)
	require.NotNil(t, courses)
	require.Empty(t, courses)
	require.Equal(t, 0, stub.count(opSearchCourse))
}

func TestGetSection(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opSection] = sectionData
	stub.responses[opCourseName] = courseNameData
	client := newTestClient(t, stub)

	section := client.GetSection(context.Background(), "c-1", "s-1")

	require.NotNil(t, section)
	require.Equal(t, 32000, section.SectionNumber)
	require.Equal(t, "MATH 1A", section.CourseName)
	require.Equal(t, "c-1", section.CourseID)
	require.Equal(t, "s-1", stub.vars(opSection)["sectionId"])
}

func TestGetSectionNotFound(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opSection] = `{"environment": {"id": "env"}, "course": null, "section": null}`
	client := newTestClient(t, stub)

	require.Nil(t, client.GetSection(context.Background(), "c-1", "missing"))
	require.Equal(t, 0, stub.count(opCourseName))
}

func TestGetInstructor(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opInstructor] = instructorData
	client := newTestClient(t, stub)
	term := &model.Term{Code: 2253, Name: "Fall 2025", ID: "t-2253"}

	instructor := client.GetInstructor(context.Background(), "Ada Lovelace", term)

	require.NotNil(t, instructor)
	require.Equal(t, "env-instructor", instructor.ID)
	require.Equal(t, "Ada Lovelace", instructor.Name)
	require.Equal(t, *term, *instructor.Term)
	require.Equal(t, "1A", instructor.Courses[0].CourseNumber)
	for _, c := range instructor.Courses {
		require.Equal(t, 2253, c.Term.Code)
	}

	vars := stub.vars(opInstructor)
	require.Equal(t, "2253", vars["termCode"])
	require.Equal(t, 100, vars["count"])
	require.Equal(t, []map[string]any{
		{"facetField": "INSTRUCTOR", "selectedFilterValues": []string{"Ada Lovelace"}},
	}, vars["facets"])

	again := client.GetInstructor(context.Background(), "Ada Lovelace", term)
	require.Equal(t, instructor, again)
	require.Equal(t, 1, stub.count(opInstructor))
}

func TestGetInstructorReturnsIndependentCopies(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opInstructor] = instructorData
	client := newTestClient(t, stub)
	term := &model.Term{Code: 2253, Name: "Fall 2025", ID: "t-2253"}

	first := client.GetInstructor(context.Background(), "Ada Lovelace", term)
	require.NotNil(t, first)
	first.Term.Name = "changed"
	first.Courses[0].Term.Name = "changed"
	first.Courses[0].Title = "changed"

	second := client.GetInstructor(context.Background(), "Ada Lovelace", term)
	require.NotNil(t, second)
	require.Equal(t, "Fall 2025", second.Term.Name)
	require.Equal(t, "Fall 2025", second.Courses[0].Term.Name)
	require.NotEqual(t, "changed", second.Courses[0].Title)
	require.Equal(t, 1, stub.count(opInstructor))
}

func TestGetInstructorDefaultsToCurrentTerm(t *testing.T) {
	stub := newStubTransport()
	stub.responses[opTerms] = termsData
	stub.responses[opInstructor] = instructorData
	client := newTestClient(t, stub)

	instructor := client.GetInstructor(context.Background(), "Ada Lovelace", nil)

	require.NotNil(t, instructor)
	require.Equal(t, 2263, instructor.Term.Code)
	require.Equal(t, "2263", stub.vars(opInstructor)["termCode"])
}

func TestUpstreamErrorNeverEscapes(t *testing.T) {
	stub := newStubTransport()
	upstream := &Error{Op: "any", Kind: KindUpstream, Err: &UpstreamError{Message: "boom"}}
	for _, op := range []string{opTerms, opCourseName, opCourseSections, opSearchCourse, opSection, opInstructor} {
		stub.errs[op] = upstream
	}
	client := newTestClient(t, stub)
	ctx := context.Background()
	term := &model.Term{Code: 2263}

	require.Empty(t, client.GetTerms(ctx))
	require.Nil(t, client.CurrentTerm(ctx))
	_, ok := client.GetCourseName(ctx, "c-1")
	require.False(t, ok)
	require.Empty(t, client.GetSectionsDefault(ctx, "c-1"))
	require.Empty(t, client.SearchCourse(ctx, "math", 10, term))
	require.Empty(t, client.SearchCourse(ctx, "math", 10, nil))
	require.Nil(t, client.GetSection(ctx, "c-1", "s-1"))
	require.Nil(t, client.GetInstructor(ctx, "Ada Lovelace", term))
	require.Nil(t, client.GetInstructor(ctx, "Ada Lovelace", nil))
}

func TestShapeErrorClassification(t *testing.T) {
	_, err := dig([]byte(`{"section": null}`), "section")
	require.True(t, IsKind(shapeError(opSection, err), KindNotFound))
	require.False(t, Transient(shapeError(opSection, err)))

	_, err = dig([]byte(`{"environment": {}}`), "environment", "courses")
	require.True(t, IsKind(shapeError(opSearchCourse, err), KindShape))
	require.False(t, Transient(shapeError(opSearchCourse, err)))

	require.True(t, Transient(&Error{Op: opTerms, Kind: KindTransport, Err: errors.New("connection refused")}))
	require.True(t, Transient(context.DeadlineExceeded))
	require.False(t, Transient(&Error{Op: opTerms, Kind: KindUpstream, Err: &UpstreamError{Message: "bad"}}))
}

func TestFailureLogLevels(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		err      error
		level    string
		kind     string
		shape    bool
	}{
		{name: "missing section", response: `{"section": null}`, level: "WARN", kind: "not_found"},
		{name: "schema drift", response: `{}`, level: "ERROR", kind: "shape", shape: true},
		{name: "rejected query", err: &Error{Op: opSection, Kind: KindUpstream, Err: &UpstreamError{Message: "bad"}}, level: "WARN", kind: "upstream"},
		{name: "network", err: &Error{Op: opSection, Kind: KindTransport, Err: errors.New("connection refused")}, level: "ERROR", kind: "transport"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStubTransport()
			if tc.err != nil {
				stub.errs[opSection] = tc.err
			} else {
				stub.responses[opSection] = tc.response
			}
			var buf bytes.Buffer
			client, err := NewSchedulerClient(stub, ClientConfig{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
			require.NoError(t, err)

			require.Nil(t, client.GetSection(context.Background(), "c-1", "s-1"))

			out := buf.String()
			require.Contains(t, out, "level="+tc.level)
			require.Contains(t, out, "kind="+tc.kind)
			if tc.shape {
				require.Contains(t, out, "unexpected response shape")
			} else {
				require.NotContains(t, out, "unexpected response shape")
			}
		})
	}
}
