package service

import (
	"context"
	"fmt"
	"io"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/internal/scrapers/isu"
	"isugrades-backend/internal/scrapers/isu/isutest"
	"isugrades-backend/internal/testutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type counterRandom struct {
	count atomic.Int64
}

func (c *counterRandom) GenerateToken() (string, error) {
	return fmt.Sprintf("session-%d", c.count.Add(1)), nil
}

type serviceEnv struct {
	portal   *isutest.Portal
	store    gradestore.Store
	recorder *telemetry.Recorder
	options  isu.Options
	service  *Service
}

func newServiceEnv(t testing.TB) serviceEnv {
	t.Helper()

	setup := testutil.SetupStore(t)
	portal := isutest.NewPortal(t)

	options := isu.Options{
		BaseUrl:   portal.URL(),
		Timeout:   5 * time.Second,
		RateLimit: rate.Inf,
		Store:     setup.Store,
		Time:      setup.Time,
		Telemetry: setup.Telemetry,
	}
	return serviceEnv{
		portal:   portal,
		store:    setup.Store,
		recorder: setup.Telemetry,
		options:  options,
		service: NewService(Options{
			Client: options,
			Rand:   &counterRandom{},
		}),
	}
}

func (e serviceEnv) do(t testing.TB, method, path string, form url.Values, cookies []*http.Cookie) *http.Response {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
	}
	for _, cookie := range cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	recorder := httptest.NewRecorder()
	e.service.Handler().ServeHTTP(recorder, req)
	res := recorder.Result()
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func readBody(t testing.TB, res *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}

func cookieMap(cookies []*http.Cookie) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, cookie := range cookies {
		out[cookie.Name] = cookie
	}
	return out
}

func (e serviceEnv) login(t testing.TB) []*http.Cookie {
	t.Helper()
	res := e.do(t, http.MethodPost, "/login", url.Values{
		"login":    {isutest.Login},
		"password": {isutest.Password},
	}, nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/", res.Header.Get("location"))
	return res.Cookies()
}

func browserSession() []*http.Cookie {
	return []*http.Cookie{
		{Name: isu.CookieSession, Value: isutest.Session},
		{Name: isu.CookiePerson, Value: "77001"},
		{Name: isu.CookieToken, Value: isutest.Token},
	}
}

func TestIndexRedirectsUnregistered(t *testing.T) {
	env := newServiceEnv(t)

	res := env.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("location"))

	res = env.do(t, http.MethodGet, "/", nil, []*http.Cookie{{Name: isu.CookieSession, Value: "x"}})
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Empty(t, env.portal.Requests())
}

func TestLoginPage(t *testing.T) {
	env := newServiceEnv(t)
	res := env.do(t, http.MethodGet, "/login", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, readBody(t, res), `name="password"`)
}

func TestLoginAndIndex(t *testing.T) {
	env := newServiceEnv(t)

	cookies := env.login(t)
	mirrored := cookieMap(cookies)
	for _, name := range isu.RegisteredCookies {
		require.Contains(t, mirrored, name)
	}
	require.Equal(t, isutest.Session, mirrored[isu.CookieSession].Value)
	require.Equal(t, "/", mirrored[isu.CookieSession].Path)
	require.Equal(t, "session-1", mirrored[SessionCookie].Value)
	require.True(t, mirrored[SessionCookie].HttpOnly)
	require.Equal(t, 1, env.service.SessionCount())

	before := len(env.portal.Requests())
	res := env.do(t, http.MethodGet, "/", nil, cookies)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := readBody(t, res)
	require.Contains(t, body, "Иванова Алиса Сергеевна")
	require.Contains(t, body, "210345")
	// the record was stored by the login, the page is rendered from the store
	require.Len(t, env.portal.Requests(), before)
}

func TestLoginRejected(t *testing.T) {
	env := newServiceEnv(t)

	res := env.do(t, http.MethodPost, "/login", url.Values{
		"login":    {isutest.Login},
		"password": {"wrong"},
	}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, readBody(t, res), msgRejected)
	require.Empty(t, res.Cookies())
	require.Zero(t, env.service.SessionCount())
}

func TestLoginPortalUnavailable(t *testing.T) {
	env := newServiceEnv(t)
	env.portal.Server.Close()

	res := env.do(t, http.MethodPost, "/login", url.Values{
		"login":    {isutest.Login},
		"password": {isutest.Password},
	}, nil)
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.Contains(t, readBody(t, res), msgUnavailable)
	require.Zero(t, env.service.SessionCount())
}

func TestIndexRebuildsSessionFromCookies(t *testing.T) {
	env := newServiceEnv(t)

	res := env.do(t, http.MethodGet, "/", nil, browserSession())
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, readBody(t, res), "Иванова Алиса Сергеевна")
	require.Equal(t, "session-1", cookieMap(res.Cookies())[SessionCookie].Value)
	require.Equal(t, 1, env.service.SessionCount())

	// nothing was stored yet, so the gradebook was scraped with the browser's
	// portal session
	_, found, err := env.store.Get(context.Background(), isutest.Owner)
	require.NoError(t, err)
	require.True(t, found)
}

func TestIndexScrapeFailure(t *testing.T) {
	env := newServiceEnv(t)
	env.portal.SetGradebook(nil)

	res := env.do(t, http.MethodGet, "/", nil, browserSession())
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.Contains(t, readBody(t, res), msgNoGradebook)
}

func TestLogout(t *testing.T) {
	env := newServiceEnv(t)
	cookies := env.login(t)

	res := env.do(t, http.MethodPost, "/", url.Values{"logout": {"1"}}, cookies)
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("location"))

	deleted := cookieMap(res.Cookies())
	for _, name := range append([]string{SessionCookie}, isu.RegisteredCookies...) {
		require.Contains(t, deleted, name)
		require.Less(t, deleted[name].MaxAge, 0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.service.Shutdown(ctx))
	require.Zero(t, env.service.SessionCount())
	require.Equal(t, 1, env.portal.Logouts())
}

func TestLogoutWithoutRegisteredSession(t *testing.T) {
	env := newServiceEnv(t)

	res := env.do(t, http.MethodPost, "/", url.Values{"logout": {"1"}}, browserSession())
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, 1, env.portal.Logouts())
}

func TestIndexPostWithoutLogout(t *testing.T) {
	env := newServiceEnv(t)
	res := env.do(t, http.MethodPost, "/", url.Values{"other": {"1"}}, browserSession())
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Zero(t, env.portal.Logouts())
}

func TestShutdownLogsOutSessions(t *testing.T) {
	env := newServiceEnv(t)
	env.login(t)
	env.login(t)
	require.Equal(t, 2, env.service.SessionCount())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.service.Shutdown(ctx))
	require.Zero(t, env.service.SessionCount())
	require.Equal(t, 2, env.portal.Logouts())
}
