package isu

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	// CookieSession is the php session cookie, it is handed out by the index
	// page before a login form can be requested.
	CookieSession = "PHPSESSID"
	// CookiePerson holds the portal's numeric person id once logged in.
	CookiePerson = "isu_person"
	CookieToken  = "token"
)

// RegisteredCookies are the cookies a browser must carry to be considered
// logged in.
var RegisteredCookies = []string{CookiePerson, CookieToken, CookieSession}

// Cookie is a single named cookie. Two cookies are the same cookie if they
// have the same name.
type Cookie struct {
	Name    string
	Value   string
	Expires *time.Time
	Path    string
	Secure  bool
}

// HttpCookie converts the cookie into its response form, including attributes.
func (c Cookie) HttpCookie() *http.Cookie {
	out := &http.Cookie{
		Name:   c.Name,
		Value:  c.Value,
		Path:   c.Path,
		Secure: c.Secure,
	}
	if c.Expires != nil {
		out.Expires = *c.Expires
	}
	return out
}

// CookieSource is anything that cookies can be merged from. The set of
// sources is closed: CookieList and CookiePairs.
type CookieSource interface {
	records() []Cookie
}

// CookieList is a list of structured cookies as received from the portal.
type CookieList []Cookie

func (l CookieList) records() []Cookie {
	return l
}

// CookiePairs are plain name/value pairs, as sent by a browser.
type CookiePairs map[string]string

func (p CookiePairs) records() []Cookie {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Cookie, len(names))
	for i, name := range names {
		out[i] = Cookie{Name: name, Value: p[name], Path: "/"}
	}
	return out
}

// FromHttpCookies converts the cookies of a response. Cookies that the server
// expires (the way the portal deletes a cookie) are dropped.
func FromHttpCookies(cookies []*http.Cookie, now time.Time) CookieList {
	out := make(CookieList, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		if c.MaxAge < 0 {
			continue
		}

		cookie := Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Secure: c.Secure,
		}
		switch {
		case c.MaxAge > 0:
			expires := now.Add(time.Duration(c.MaxAge) * time.Second)
			cookie.Expires = &expires
		case !c.Expires.IsZero():
			if !c.Expires.After(now) {
				continue
			}
			expires := c.Expires
			cookie.Expires = &expires
		}
		out = append(out, cookie)
	}
	return out
}

// CookieStore holds at most one cookie per name. It is not safe for concurrent
// use, it belongs to a single Client.
type CookieStore struct {
	cookies map[string]Cookie
}

func NewCookieStore() *CookieStore {
	return &CookieStore{cookies: make(map[string]Cookie)}
}

func (s *CookieStore) Get(name string) (Cookie, bool) {
	cookie, ok := s.cookies[name]
	return cookie, ok
}

// SetIfAbsent stores the cookie only if there is no cookie with the same name
// yet. It returns true if the cookie was stored.
func (s *CookieStore) SetIfAbsent(cookie Cookie) bool {
	if _, exists := s.cookies[cookie.Name]; exists {
		return false
	}
	s.cookies[cookie.Name] = cookie
	return true
}

// Merge calls SetIfAbsent for every cookie in the source, the first value seen
// for a name always wins. It returns the number of cookies added.
func (s *CookieStore) Merge(source CookieSource) int {
	if source == nil {
		return 0
	}
	added := 0
	for _, cookie := range source.records() {
		if s.SetIfAbsent(cookie) {
			added++
		}
	}
	return added
}

func (s *CookieStore) ContainsAll(names ...string) bool {
	for _, name := range names {
		if _, ok := s.cookies[name]; !ok {
			return false
		}
	}
	return true
}

// List returns every cookie sorted by name.
func (s *CookieStore) List() []Cookie {
	out := make([]Cookie, 0, len(s.cookies))
	for _, cookie := range s.cookies {
		out = append(out, cookie)
	}
	slices.SortFunc(out, func(a, b Cookie) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (s *CookieStore) Len() int {
	return len(s.cookies)
}

// HttpCookies returns the cookies in request form (name and value only).
func (s *CookieStore) HttpCookies() []*http.Cookie {
	list := s.List()
	out := make([]*http.Cookie, len(list))
	for i, cookie := range list {
		out[i] = &http.Cookie{Name: cookie.Name, Value: cookie.Value}
	}
	return out
}

func (s *CookieStore) Clear() {
	clear(s.cookies)
}
