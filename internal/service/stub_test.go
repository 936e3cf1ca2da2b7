package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubTransport answers each operation with a canned data payload and counts calls
type stubTransport struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     map[string]int
	variables map[string]map[string]any

	// block, when set, holds every call until it is closed or ctx is done
	block chan struct{}
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		responses: map[string]string{},
		errs:      map[string]error{},
		calls:     map[string]int{},
		variables: map[string]map[string]any{},
	}
}

func (s *stubTransport) Execute(ctx context.Context, operation, _ string, variables map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls[operation]++
	s.variables[operation] = variables
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[operation]; ok {
		return nil, err
	}
	if resp, ok := s.responses[operation]; ok {
		return json.RawMessage(resp), nil
	}
	return json.RawMessage(`null`), nil
}

func (s *stubTransport) count(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[operation]
}

func (s *stubTransport) vars(operation string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variables[operation]
}

func newTestClient(t *testing.T, transport Transport) *SchedulerClient {
	t.Helper()
	client, err := NewSchedulerClient(transport, ClientConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return client
}

const termsData = `{"environment": {"courseSearchTerms": [
	{"code": "2253", "name": "Fall 2025", "id": "t-2253"},
	{"code": "2263", "name": "Spring 2026", "id": "t-2263"},
	{"code": "2243", "name": "Spring 2024", "id": "t-2243"}
], "id": "env"}}`

const courseNameData = `{"course": {"__typename": "SearchCourse", "id": "c-1", "subject": {"id": "MATH"}, "term": {"code": "2263", "id": "t-2263"}, "courseNumber": "1A", "title": "Calculus I"}}`

const sectionsData = `{"environment": {"id": "env", "getCourseSections": {"totalSections": 2, "edges": [
	{"cursor": "a", "node": {"id": "s-2", "registrationNumber": 32001, "openSeats": 0, "totalSeats": 30,
		"meetings": [{"room": 0, "days": "TTh", "startDate": "2026-01-20", "endDate": "2026-05-22", "startTime": 800, "endTime": 925}]}},
	{"cursor": "b", "node": {"id": "s-1", "registrationNumber": "32000", "openSeats": 4, "totalSeats": 30,
		"meetings": [{"room": "118", "buildingCode": "SHIMA", "days": "MW", "startDate": "2026-01-20", "endDate": "2026-05-22", "startTime": 1330, "endTime": 1455}]}}
]}}}`

const sectionData = `{"environment": {"id": "env"}, "course": {"id": "c-1"}, "section": {"__typename": "SearchSection", "id": "s-1", "registrationNumber": 32000, "openSeats": 4, "totalSeats": 30,
	"meetings": [{"room": "118", "buildingCode": "SHIMA", "days": "MW", "startDate": "2026-01-20", "endDate": "2026-05-22", "startTime": 1330, "endTime": 1455}]}}`

const searchData = `{"environment": {"id": "env", "courses": [
	{"courseId": "c-9", "subjectId": "MATH", "courseNumber": "9", "title": "Pre-Algebra"},
	{"courseId": "c-20", "subjectId": "MATH", "courseNumber": "20", "title": "Intermediate Algebra"},
	{"courseId": "c-101", "subjectId": "MATH", "courseNumber": "101", "title": "Statistics"}
]}}`

const instructorData = `{"environment": {"id": "env-instructor", "findCourses": {"edges": [
	{"cursor": "a", "node": {"id": "c-2", "subject": {"id": "MATH"}, "courseNumber": "2", "title": "Calc II"}},
	{"cursor": "b", "node": {"id": "c-1", "subject": {"id": "MATH"}, "courseNumber": "1A", "title": "Calc I"}}
]}}}`
