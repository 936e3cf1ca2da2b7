package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/classwatch/internal/model"
	"github.com/jjenkins/classwatch/internal/store"
)

type fakeCatalog struct {
	sections map[string][]model.Section
	searched []string
}

func (f *fakeCatalog) CurrentTerm(ctx context.Context) *model.Term {
	return &model.Term{Code: 202410, Name: "Fall 2024", ID: "t1"}
}

func (f *fakeCatalog) SearchCourse(ctx context.Context, query string, count int, term *model.Term) []model.Course {
	f.searched = append(f.searched, query)
	return []model.Course{{ID: "c1", SubjectID: "MATH", CourseNumber: "1A", Title: "Calculus", Term: term}}
}

func (f *fakeCatalog) GetSections(ctx context.Context, courseID string, count int, includeFull bool) []model.Section {
	return f.sections[courseID]
}

func (f *fakeCatalog) GetSection(ctx context.Context, courseID, sectionID string) *model.Section {
	for _, s := range f.sections[courseID] {
		if s.ID == sectionID {
			return &s
		}
	}
	return nil
}

func (f *fakeCatalog) GetCourseName(ctx context.Context, courseID string) (string, bool) {
	if len(f.sections[courseID]) == 0 {
		return "", false
	}
	return f.sections[courseID][0].CourseName, true
}

type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]*model.User
}

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[u.Username]; ok {
		return store.ErrDuplicate
	}
	u.ID = int64(len(f.byName) + 1)
	f.byName[u.Username] = u
	return nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byName[username], nil
}

type fakeWatches struct {
	mu       sync.Mutex
	watching map[int64]map[string]model.WatchedSection
}

func (f *fakeWatches) Watch(ctx context.Context, userID int64, ws model.WatchedSection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watching[userID] == nil {
		f.watching[userID] = map[string]model.WatchedSection{}
	}
	f.watching[userID][ws.SectionID] = ws
	return nil
}

func (f *fakeWatches) Unwatch(ctx context.Context, userID int64, sectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watching[userID], sectionID)
	return nil
}

func (f *fakeWatches) IsWatching(ctx context.Context, userID int64, sectionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watching[userID][sectionID]
	return ok, nil
}

func (f *fakeWatches) ListForUser(ctx context.Context, userID int64) ([]model.WatchedSection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.WatchedSection
	for _, ws := range f.watching[userID] {
		out = append(out, ws)
	}
	return out, nil
}

func (f *fakeWatches) GetSection(ctx context.Context, sectionID string) (*model.WatchedSection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sections := range f.watching {
		if ws, ok := sections[sectionID]; ok {
			return &ws, nil
		}
	}
	return nil, nil
}

func (f *fakeWatches) Snapshots(ctx context.Context, sectionID string) ([]model.SectionSnapshot, error) {
	return nil, nil
}

type testApp struct {
	app     *fiber.App
	catalog *fakeCatalog
	users   *fakeUsers
	watches *fakeWatches
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ta := &testApp{
		app: fiber.New(),
		catalog: &fakeCatalog{sections: map[string][]model.Section{
			"c1": {
				{ID: "s1", SectionNumber: 32000, OpenSeats: 0, TotalSeats: 30, CourseID: "c1", CourseName: "MATH 1A"},
				{ID: "s2", SectionNumber: 32001, OpenSeats: 4, TotalSeats: 30, CourseID: "c1", CourseName: "MATH 1A"},
			},
			"c2": {
				{ID: "s3", SectionNumber: 40000, CourseID: "c2", CourseName: model.UnknownName},
			},
		}},
		users:   &fakeUsers{byName: map[string]*model.User{}},
		watches: &fakeWatches{watching: map[int64]map[string]model.WatchedSection{}},
	}

	Mount(ta.app, Deps{
		Catalog:  ta.catalog,
		Users:    ta.users,
		Watches:  ta.watches,
		Sessions: NewSessions(false, logger),
		Logger:   logger,
	})
	return ta
}

// do sends a request, attaching a fresh CSRF token to form posts
func (ta *testApp) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	if method == http.MethodPost {
		token := ta.csrfCookie(t)
		if form == nil {
			form = url.Values{}
		}
		form.Set(csrfField, token.Value)
		cookies = append(cookies, token)
	}
	return ta.send(t, method, path, form, cookies...)
}

func (ta *testApp) send(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	return findCookie(t, resp, "session_id")
}

// csrfCookie fetches the login page and returns the token cookie it sets
func (ta *testApp) csrfCookie(t *testing.T) *http.Cookie {
	t.Helper()
	resp, _ := ta.send(t, http.MethodGet, "/login", nil)
	return findCookie(t, resp, csrfCookie)
}

func (ta *testApp) register(t *testing.T, username string) *http.Cookie {
	t.Helper()
	resp, _ := ta.do(t, http.MethodPost, "/register", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password":  {"correct horse"},
		"password2": {"correct horse"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/index", resp.Header.Get("Location"))
	return sessionCookie(t, resp)
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	ta := newTestApp(t)

	for _, path := range []string{"/", "/index", "/watchlist", "/sections/s1/history"} {
		resp, _ := ta.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusFound, resp.StatusCode, path)
		require.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
}

func TestCoursePage(t *testing.T) {
	ta := newTestApp(t)

	testCases := []struct {
		name     string
		courseID string
		want     string
	}{
		{name: "named course", courseID: "c1", want: "<h1>MATH 1A</h1>"},
		{name: "unresolved name", courseID: "c2", want: "<h1>Unknown Course</h1>"},
		{name: "no sections", courseID: "nope", want: "<h1>Unknown Course</h1>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := ta.do(t, http.MethodGet, "/courses/"+tc.courseID, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, body, tc.want)
		})
	}
}

func TestSectionPage(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.do(t, http.MethodGet, "/courses/c1/sections/s2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "MATH 1A section 32001")
	require.Contains(t, body, "Log in</a> to watch")

	resp, _ = ta.do(t, http.MethodGet, "/courses/c1/sections/missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	ta := newTestApp(t)
	ta.register(t, "ada")

	testCases := []struct {
		name   string
		form   url.Values
		status int
		want   string
	}{
		{
			name:   "password mismatch",
			form:   url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"password1"}, "password2": {"password2"}},
			status: http.StatusBadRequest,
			want:   "Passwords do not match",
		},
		{
			name:   "short password",
			form:   url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"short"}, "password2": {"short"}},
			status: http.StatusBadRequest,
			want:   "at least 8 characters",
		},
		{
			name:   "bad email",
			form:   url.Values{"username": {"bob"}, "email": {"not an email"}, "password": {"password1"}, "password2": {"password1"}},
			status: http.StatusBadRequest,
			want:   "valid email",
		},
		{
			name:   "duplicate username",
			form:   url.Values{"username": {"ada"}, "email": {"other@example.com"}, "password": {"password1"}, "password2": {"password1"}},
			status: http.StatusConflict,
			want:   "already registered",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := ta.do(t, http.MethodPost, "/register", tc.form)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Contains(t, body, tc.want)
		})
	}
}

func TestLogin(t *testing.T) {
	ta := newTestApp(t)
	ta.register(t, "ada")

	resp, body := ta.do(t, http.MethodPost, "/login", url.Values{"username": {"ada"}, "password": {"wrong password"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "Invalid username or password")

	resp, _ = ta.do(t, http.MethodPost, "/login", url.Values{"username": {"ada"}, "password": {"correct horse"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	resp, body = ta.do(t, http.MethodGet, "/index", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Successfully logged in as ada")
	require.Contains(t, body, "Logout")

	// the flash is shown once
	_, body = ta.do(t, http.MethodGet, "/index", nil, cookie)
	require.NotContains(t, body, "Successfully logged in")
}

func TestSearch(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.register(t, "ada")

	resp, body := ta.do(t, http.MethodPost, "/index", url.Values{"query": {"  math "}}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Calculus")
	require.Equal(t, []string{"math"}, ta.catalog.searched)
}

func TestWatchAndUnwatch(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.register(t, "ada")
	userID := ta.users.byName["ada"].ID

	resp, _ := ta.do(t, http.MethodPost, "/courses/c1/sections/s1/watch", nil, cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/courses/c1/sections/s1", resp.Header.Get("Location"))

	ws, ok := ta.watches.watching[userID]["s1"]
	require.True(t, ok)
	require.Equal(t, "MATH 1A", ws.CourseName)
	require.Equal(t, 30, ws.TotalSeats)
	require.NotEmpty(t, ws.Checksum)

	_, body := ta.do(t, http.MethodGet, "/courses/c1/sections/s1", nil, cookie)
	require.Contains(t, body, "Now watching MATH 1A Section 32000")
	require.Contains(t, body, "Stop watching")

	_, body = ta.do(t, http.MethodGet, "/watchlist", nil, cookie)
	require.Contains(t, body, "/sections/s1/history")

	resp, _ = ta.do(t, http.MethodPost, "/courses/c1/sections/s1/unwatch", nil, cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Empty(t, ta.watches.watching[userID])

	resp, _ = ta.do(t, http.MethodPost, "/courses/c1/sections/missing/watch", nil, cookie)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.register(t, "ada")

	resp, _ := ta.do(t, http.MethodGet, "/logout", nil, cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodGet, "/watchlist", nil, cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestFormsCarryCSRFToken(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.send(t, http.MethodGet, "/register", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := findCookie(t, resp, csrfCookie)
	require.Contains(t, body, `name="_csrf" value="`+token.Value+`"`)
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.register(t, "ada")
	token := ta.csrfCookie(t)

	testCases := []struct {
		name    string
		path    string
		form    url.Values
		cookies []*http.Cookie
	}{
		{
			name: "login without token",
			path: "/login",
			form: url.Values{"username": {"ada"}, "password": {"correct horse"}},
		},
		{
			name:    "watch without token",
			path:    "/courses/c1/sections/s1/watch",
			form:    url.Values{},
			cookies: []*http.Cookie{cookie},
		},
		{
			name:    "token without matching cookie",
			path:    "/courses/c1/sections/s1/watch",
			form:    url.Values{csrfField: {token.Value}},
			cookies: []*http.Cookie{cookie},
		},
		{
			name:    "forged token",
			path:    "/courses/c1/sections/s1/watch",
			form:    url.Values{csrfField: {"forged"}},
			cookies: []*http.Cookie{cookie, {Name: csrfCookie, Value: "forged"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := ta.send(t, http.MethodPost, tc.path, tc.form, tc.cookies...)
			require.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}

	userID := ta.users.byName["ada"].ID
	require.Empty(t, ta.watches.watching[userID])
}
