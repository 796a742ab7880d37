package isu

import (
	"context"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/scrapers/isu/isutest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAuthenticateSuccess(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	ok, err := client.Authenticate(ctx, isutest.Login, isutest.Password)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, client.IsAuthenticated())
	require.Equal(t, StateAuthenticated, client.State())
	require.NoError(t, client.LastSyncError())

	token, ok := client.FormToken()
	require.True(t, ok)
	require.Equal(t, 4821, token)

	// the session cookie from the bootstrap is kept even though the login
	// response hands out a new one
	session, ok := client.cookies.Get(CookieSession)
	require.True(t, ok)
	require.Equal(t, isutest.Session, session.Value)
	require.Equal(t, isutest.Session, env.portal.SessionAtLogin())

	names := []string{}
	for _, cookie := range client.Cookies() {
		names = append(names, cookie.Name)
	}
	require.Equal(t, []string{CookieSession, CookiePerson, "lang", CookieToken}, names)

	owner, ok := client.OwnerID()
	require.True(t, ok)
	require.EqualValues(t, isutest.Owner, owner)

	record, ok, err := client.GradebookRecord(ctx, isutest.Owner)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, isutest.RecordBook, record.ID)
	require.Equal(t, "Иванова Алиса Сергеевна", record.FullName)
	require.Equal(t, "ФИРТ", record.Faculty)

	expected := []string{
		"GET /",
		"GET /index/",
		"GET /login/",
		"POST /login/",
		"GET /isu_person_card/",
		"GET /isu_gradebook/",
	}
	if diff := cmp.Diff(expected, env.portal.Requests()); diff != "" {
		t.Fatal("unexpected requests (-want +got):\n", diff)
	}
	require.Empty(t, env.recorder.Reports(telemetry.REPORT_BROKEN))
}

func TestAuthenticateAfterLogoutSwitchesAccount(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	ok, err := client.Authenticate(ctx, isutest.Alice.Login, isutest.Alice.Password)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Logout(ctx))
	require.False(t, client.IsAuthenticated())
	require.Empty(t, client.Cookies())
	_, ok = client.FormToken()
	require.False(t, ok)

	ok, err = client.Authenticate(ctx, isutest.Bob.Login, isutest.Bob.Password)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, client.LastSyncError())

	owner, ok := client.OwnerID()
	require.True(t, ok)
	require.Equal(t, isutest.Bob.Owner, owner)
	token, ok := client.cookies.Get(CookieToken)
	require.True(t, ok)
	require.Equal(t, isutest.Bob.Token, token.Value)

	for _, account := range []isutest.Account{isutest.Alice, isutest.Bob} {
		record, found, err := client.GradebookRecord(ctx, account.Owner)
		require.NoError(t, err)
		require.True(t, found, account.Login)
		require.Equal(t, account.RecordBook, record.ID)
		require.Equal(t, account.FullName, record.FullName)
	}

	// the second login bootstraps a new php session
	require.Equal(t, 1, env.portal.Logouts())
	require.Equal(t, 2, countOf(env.portal.Requests(), "GET /index/"))
}

func countOf(values []string, value string) int {
	count := 0
	for _, v := range values {
		if v == value {
			count++
		}
	}
	return count
}

func TestSyncGradebookFetchesPersonCard(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	ok, err := client.Authenticate(ctx, isutest.Login, isutest.Password)
	require.NoError(t, err)
	require.True(t, ok)
	before := len(env.portal.Requests())

	record, created, err := client.SyncGradebook(ctx)
	require.NoError(t, err)
	require.False(t, created)
	require.EqualValues(t, isutest.RecordBook, record.ID)
	require.Equal(t, []string{"GET /isu_person_card/", "GET /isu_gradebook/"}, env.portal.Requests()[before:])
}

func TestAuthenticateRejected(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	ok, err := client.Authenticate(ctx, isutest.Login, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, client.IsAuthenticated())
	require.Equal(t, StateRejectedCredentials, client.State())

	_, exists := client.cookies.Get(isutest.RejectedCookie)
	require.False(t, exists, "cookies of a rejected login must not be kept")
	_, exists = client.OwnerID()
	require.False(t, exists)

	count, err := env.store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	expected := []string{"GET /", "GET /index/", "GET /login/", "POST /login/"}
	if diff := cmp.Diff(expected, env.portal.Requests()); diff != "" {
		t.Fatal("unexpected requests (-want +got):\n", diff)
	}
}

func TestAuthenticateSkipsBootstrapWithSession(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	client.cookies.SetIfAbsent(Cookie{Name: CookieSession, Value: "sess-browser"})

	ok, err := client.Authenticate(testContext(t), isutest.Login, isutest.Password)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sess-browser", env.portal.SessionAtLogin())
	require.Equal(t, "GET /login/", env.portal.Requests()[0])
}

func TestAuthenticateLoginFormUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.portal.SetLoginForm([]byte("<html><body>Технические работы</body></html>"))
	client := env.newClient(t)

	ok, err := client.Authenticate(testContext(t), isutest.Login, isutest.Password)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrLoginFormUnavailable)
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.Equal(t, StateAnonymous, client.State())
	require.NotContains(t, env.portal.Requests(), "POST /login/")
	require.Len(t, env.recorder.Broken(report_client_authenticate), 1)
}

func TestAuthenticateNetworkFailure(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	env.portal.Server.Close()

	ok, err := client.Authenticate(testContext(t), isutest.Login, isutest.Password)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, ErrLoginFormUnavailable)
	require.False(t, client.IsAuthenticated())

	warned := false
	for _, report := range env.recorder.Reports(telemetry.REPORT_WARNING) {
		if strings.HasSuffix(report.Id, report_client_bootstrap) {
			warned = true
		}
	}
	require.True(t, warned, "bootstrap failure should be reported as a warning")
}

func TestSyncFailureKeepsLogin(t *testing.T) {
	env := newTestEnv(t)
	env.portal.SetGradebook(nil)
	client := env.newClient(t)
	ctx := testContext(t)

	ok, err := client.Authenticate(ctx, isutest.Login, isutest.Password)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, client.IsAuthenticated())
	require.ErrorIs(t, client.LastSyncError(), ErrParseStructure)
	require.Len(t, env.recorder.Broken(report_client_sync), 1)

	_, ok, err = client.GradebookRecord(ctx, isutest.Owner)
	require.NoError(t, err)
	require.False(t, ok)

	// once the page is back the sync can be retried by hand
	env.portal.SetGradebook(isutest.GradebookPage)
	record, created, err := client.SyncGradebook(ctx)
	require.NoError(t, err)
	require.True(t, created)
	require.EqualValues(t, isutest.RecordBook, record.ID)

	_, created, err = client.SyncGradebook(ctx)
	require.NoError(t, err)
	require.False(t, created)
}

func TestSyncPreconditions(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	_, _, err := client.SyncGradebook(ctx)
	require.ErrorIs(t, err, ErrNoIdentity)

	client.cookies.SetIfAbsent(Cookie{Name: CookiePerson, Value: "77001"})
	_, _, err = client.SyncGradebook(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = client.FetchGradebook(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Empty(t, env.portal.Requests())
}

func TestResume(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	require.False(t, client.Resume(CookiePairs{CookieSession: isutest.Session}))
	require.False(t, client.IsAuthenticated())

	require.True(t, client.Resume(CookiePairs{
		CookiePerson: "77001",
		CookieToken:  isutest.Token,
	}))
	require.Equal(t, StateAuthenticated, client.State())

	book, err := client.FetchGradebook(ctx)
	require.NoError(t, err)
	require.EqualValues(t, isutest.RecordBook, book.RecordBook)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	ctx := testContext(t)

	ok, err := client.Authenticate(ctx, isutest.Login, isutest.Password)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Logout(ctx))
	require.False(t, client.IsAuthenticated())
	require.Equal(t, StateAnonymous, client.State())
	require.Equal(t, 1, env.portal.Logouts())

	// logging out again still asks the portal
	require.NoError(t, client.Logout(ctx))
	require.Equal(t, 2, env.portal.Logouts())
}

func TestNewClientRejectsRelativeUrl(t *testing.T) {
	env := newTestEnv(t)
	options := env.options
	options.BaseUrl = "isu.uust.ru"
	_, err := NewClient(options)
	require.Error(t, err)
}
