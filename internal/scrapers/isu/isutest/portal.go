// Package isutest provides an in-process imitation of the portal for tests.
package isutest

import (
	"bytes"
	_ "embed"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

//go:embed testdata/login.html
var LoginPage []byte

//go:embed testdata/card.html
var CardPage []byte

//go:embed testdata/gradebook.html
var GradebookPage []byte

// the fixture account, see Alice
const (
	Login      = "alice"
	Password   = "correct horse"
	FormToken  = "4821"
	Owner      = 77001
	RecordBook = 210345
	Token      = "tok-abc"
	// Session is the php session cookie handed out by the index page.
	Session = "sess-1"
	// LoginSession is the php session cookie the login response tries to set.
	LoginSession = "sess-2"
	// RejectedCookie is only set when credentials are rejected.
	RejectedCookie = "login_attempt"
)

// Account is a portal user. Every account gets its own identity cookies,
// person card and gradebook.
type Account struct {
	Login      string
	Password   string
	Owner      int64
	RecordBook int64
	Token      string
	FullName   string
}

// Alice is the account the fixtures were captured from.
var Alice = Account{
	Login:      Login,
	Password:   Password,
	Owner:      Owner,
	RecordBook: RecordBook,
	Token:      Token,
	FullName:   "Иванова Алиса Сергеевна",
}

// Bob is a second account, served from the same fixtures with his own values
// substituted.
var Bob = Account{
	Login:      "bob",
	Password:   "hunter2",
	Owner:      88002,
	RecordBook: 310456,
	Token:      "tok-bob",
	FullName:   "Смирнов Борис Олегович",
}

var accounts = []Account{Alice, Bob}

func accountByLogin(login string) (Account, bool) {
	for _, account := range accounts {
		if account.Login == login {
			return account, true
		}
	}
	return Account{}, false
}

func accountByToken(token string) (Account, bool) {
	for _, account := range accounts {
		if account.Token == token {
			return account, true
		}
	}
	return Account{}, false
}

// personalize swaps the values of the fixture account for those of account.
func personalize(page []byte, account Account) []byte {
	page = bytes.ReplaceAll(page, []byte(strconv.FormatInt(Alice.RecordBook, 10)), []byte(strconv.FormatInt(account.RecordBook, 10)))
	return bytes.ReplaceAll(page, []byte(Alice.FullName), []byte(account.FullName))
}

// Portal serves the index, login, person card and gradebook pages and the
// logout endpoint. Every request is recorded as "METHOD /path".
type Portal struct {
	Server *httptest.Server

	mutex     sync.Mutex
	logouts   int
	requests  []string
	loginForm []byte
	gradebook []byte
	// sessionAtLogin is the PHPSESSID the credentials were submitted with
	sessionAtLogin string
}

// NewPortal starts a portal that is closed with the test.
func NewPortal(t testing.TB) *Portal {
	p := &Portal{
		loginForm: LoginPage,
		gradebook: GradebookPage,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", p.handleIndex)
	mux.HandleFunc("/index/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "lang", Value: "ru", Path: "/"})
		w.Write([]byte("<html><body>ИСУ</body></html>"))
	})
	mux.HandleFunc("/login/", p.handleLogin)
	mux.HandleFunc("/isu_person_card/", p.requireToken(func(w http.ResponseWriter, r *http.Request, account Account) {
		w.Write(personalize(CardPage, account))
	}))
	mux.HandleFunc("/isu_gradebook/", p.requireToken(p.handleGradebook))

	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mutex.Lock()
		p.requests = append(p.requests, r.Method+" "+r.URL.Path)
		p.mutex.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.Server.Close)

	return p
}

func (p *Portal) URL() string {
	return p.Server.URL
}

func (p *Portal) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("exit") == "exit" {
		p.mutex.Lock()
		p.logouts++
		p.mutex.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "isu_person", Value: "", Path: "/", MaxAge: -1})
		w.Write([]byte("<html><body>bye</body></html>"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: Session, Path: "/"})
	http.Redirect(w, r, "/index/", http.StatusFound)
}

func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		p.mutex.Lock()
		form := p.loginForm
		p.mutex.Unlock()
		w.Write(form)
		return
	}

	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if session, err := r.Cookie("PHPSESSID"); err == nil {
		p.mutex.Lock()
		p.sessionAtLogin = session.Value
		p.mutex.Unlock()
	}

	account, known := accountByLogin(r.PostForm.Get("login"))
	if r.PostForm.Get("form_num") != FormToken ||
		!known ||
		r.PostForm.Get("password") != account.Password {
		http.SetCookie(w, &http.Cookie{Name: RejectedCookie, Value: "1", Path: "/"})
		w.Write(LoginPage)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "isu_person", Value: strconv.FormatInt(account.Owner, 10), Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "token", Value: account.Token, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: LoginSession, Path: "/"})
	http.Redirect(w, r, "/isu_person_card/", http.StatusFound)
}

func (p *Portal) requireToken(next func(w http.ResponseWriter, r *http.Request, account Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := r.Cookie("token")
		if err != nil {
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}
		account, ok := accountByToken(token.Value)
		if !ok {
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}
		next(w, r, account)
	}
}

func (p *Portal) handleGradebook(w http.ResponseWriter, r *http.Request, account Account) {
	p.mutex.Lock()
	page := p.gradebook
	p.mutex.Unlock()

	if page == nil || r.URL.Query().Get("id") != strconv.FormatInt(account.RecordBook, 10) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html><body>Ошибка</body></html>"))
		return
	}
	w.Write(personalize(page, account))
}

// SetLoginForm replaces the page served for GET /login/.
func (p *Portal) SetLoginForm(page []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.loginForm = page
}

// SetGradebook replaces the gradebook page, nil serves an error page instead.
func (p *Portal) SetGradebook(page []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.gradebook = page
}

func (p *Portal) Logouts() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.logouts
}

func (p *Portal) Requests() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.requests...)
}

func (p *Portal) SessionAtLogin() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.sessionAtLogin
}
