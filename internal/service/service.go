package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"isugrades-backend/internal/components/assert"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/internal/scrapers/isu"
	"net/http"
	"time"

	"github.com/mazen160/go-random"
)

// SessionCookie identifies a browser's entry in the session registry.
const SessionCookie = "isugrades_session"

const (
	report_service_login    = "service.login"
	report_service_index    = "service.index"
	report_service_logout   = "service.logout"
	report_service_render   = "service.render"
	report_rand_session_ids = "rand.session-id-generation"
)

const (
	msgRejected    = "Неверный логин или пароль"
	msgUnavailable = "Портал ИСУ недоступен, попробуйте позже"
	msgNoGradebook = "Не удалось загрузить зачетную книжку"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// RandomAPI is an abstraction over any code that potentially generates random values.
// This makes mocking/simulation testing much easier.
//
// note: fault injection point
type RandomAPI interface {
	GenerateToken() (string, error)
}

type defaultRandomAPI struct{}

func (defaultRandomAPI) GenerateToken() (string, error) {
	return random.String(32)
}

type Options struct {
	// Client is the template every portal client is created from.
	Client isu.Options
	// SessionTTL is how long an unused browser session is kept, it defaults to
	// 15 minutes.
	SessionTTL time.Duration
	// Rand defaults to a random string generator.
	Rand RandomAPI
}

// Service serves the login page and the gradebook page of a logged in browser.
type Service struct {
	client   isu.Options
	sessions *registry
	rand     RandomAPI
	tel      telemetry.API
}

func NewService(opts Options) *Service {
	assert.NotNil(opts.Client.Store)
	assert.NotNil(opts.Client.Telemetry)

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	rand := opts.Rand
	if rand == nil {
		rand = defaultRandomAPI{}
	}
	tel := telemetry.NewScopedAPI("service", opts.Client.Telemetry)

	return &Service{
		client:   opts.Client,
		sessions: newRegistry(ttl, tel),
		rand:     rand,
		tel:      tel,
	}
}

func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleIndexPost)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	return mux
}

// Shutdown logs out every session that is still registered.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.sessions.Shutdown(ctx)
}

// SessionCount returns the number of registered browser sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Len()
}

type loginPage struct {
	Login string
	Error string
}

type indexPage struct {
	Record gradestore.Record
	Error  string
}

func (s *Service) render(w http.ResponseWriter, status int, name string, data any) {
	var buffer bytes.Buffer
	err := templates.ExecuteTemplate(&buffer, name, data)
	if err != nil {
		s.tel.ReportBroken(report_service_render, err, name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buffer.Bytes())
}

func browserCookies(r *http.Request) isu.CookiePairs {
	pairs := isu.CookiePairs{}
	for _, cookie := range r.Cookies() {
		if cookie.Name == SessionCookie {
			continue
		}
		pairs[cookie.Name] = cookie.Value
	}
	return pairs
}

func isRegistered(r *http.Request) bool {
	for _, name := range isu.RegisteredCookies {
		if _, err := r.Cookie(name); err != nil {
			return false
		}
	}
	return true
}

func sessionId(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// resolveSession returns the registered session of the browser, a browser
// without one gets a new session rebuilt from its portal cookies.
func (s *Service) resolveSession(w http.ResponseWriter, r *http.Request) (*session, error) {
	if existing, ok := s.sessions.Get(sessionId(r)); ok {
		return existing, nil
	}

	client, err := isu.NewClient(s.client)
	if err != nil {
		return nil, err
	}
	client.Resume(browserCookies(r))

	id, err := s.rand.GenerateToken()
	if err != nil {
		s.tel.ReportBroken(report_rand_session_ids, err)
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	return s.sessions.Add(id, client), nil
}

func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !isRegistered(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	sess, err := s.resolveSession(w, r)
	if err != nil {
		s.tel.ReportBroken(report_service_index, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sess.mutex.Lock()
	defer sess.mutex.Unlock()

	ctx := r.Context()
	owner, ok := sess.client.OwnerID()
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	record, found, err := sess.client.GradebookRecord(ctx, owner)
	if err != nil {
		s.tel.ReportBroken(report_service_index, err, owner)
		s.render(w, http.StatusInternalServerError, "index.html", indexPage{Error: msgNoGradebook})
		return
	}
	if !found {
		// the sync after login failed or the record was never scraped
		record, _, err = sess.client.SyncGradebook(ctx)
		if err != nil {
			s.tel.ReportWarning(report_service_index, err, owner)
			s.render(w, http.StatusBadGateway, "index.html", indexPage{Error: msgNoGradebook})
			return
		}
	}
	s.render(w, http.StatusOK, "index.html", indexPage{Record: record})
}

func (s *Service) handleIndexPost(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil || !r.PostForm.Has("logout") {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	s.logout(w, r)
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	id := sessionId(r)
	sess, registered := s.sessions.Get(id)
	if registered {
		sess.mutex.Lock()
		err := sess.client.Logout(r.Context())
		sess.mutex.Unlock()
		if err != nil {
			s.tel.ReportWarning(report_service_logout, err)
		}
		s.sessions.Remove(id)
	} else if isRegistered(r) {
		err := isu.WithSession(r.Context(), s.client, func(ctx context.Context, client *isu.Client) error {
			client.Resume(browserCookies(r))
			return nil
		})
		if err != nil {
			s.tel.ReportWarning(report_service_logout, err)
		}
	}

	for _, name := range append([]string{SessionCookie}, isu.RegisteredCookies...) {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Service) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login.html", loginPage{})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	login := r.PostForm.Get("login")
	password := r.PostForm.Get("password")
	if login == "" || password == "" {
		s.render(w, http.StatusOK, "login.html", loginPage{Login: login, Error: msgRejected})
		return
	}

	client, err := isu.NewClient(s.client)
	if err != nil {
		s.tel.ReportBroken(report_service_login, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ok, err := client.Authenticate(r.Context(), login, password)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		s.render(w, status, "login.html", loginPage{Login: login, Error: msgUnavailable})
		return
	}
	if !ok {
		s.render(w, http.StatusOK, "login.html", loginPage{Login: login, Error: msgRejected})
		return
	}

	id, err := s.rand.GenerateToken()
	if err != nil {
		s.tel.ReportBroken(report_rand_session_ids, err)
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), closeTimeout)
		defer cancel()
		client.Close(closeCtx)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	for _, cookie := range client.Cookies() {
		mirrored := cookie.HttpCookie()
		if mirrored.Path == "" {
			mirrored.Path = "/"
		}
		http.SetCookie(w, mirrored)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	s.sessions.Add(id, client)

	http.Redirect(w, r, "/", http.StatusFound)
}
