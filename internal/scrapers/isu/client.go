// client.go negotiates a logged in session with the portal, it only keeps
// cookies and state, every page is handed to extract.go for scraping.

package isu

import (
	"context"
	"fmt"
	"isugrades-backend/internal/components/assert"
	"isugrades-backend/internal/components/chrono"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/pkg/htmlutil"
	"isugrades-backend/pkg/restyutil"
	"net/http"
	"net/url"
	"strconv"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_bootstrap    = "client.bootstrap"
	report_client_authenticate = "client.authenticate"
	report_client_logout       = "client.logout"
	report_client_sync         = "client.sync-gradebook"
)

const (
	DefaultBaseUrl = "https://isu.uust.ru/"
	DefaultTimeout = 30 * time.Second

	maxRedirects = 10

	pathLogin      = "/login/"
	pathPersonCard = "/isu_person_card/"
)

// State is the progress of a client through the login handshake.
type State int

const (
	StateAnonymous State = iota
	StateBootstrappingCookies
	StateFetchingLoginForm
	StateSubmittingCredentials
	StateAuthenticated
	StateRejectedCredentials
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateBootstrappingCookies:
		return "bootstrapping-cookies"
	case StateFetchingLoginForm:
		return "fetching-login-form"
	case StateSubmittingCredentials:
		return "submitting-credentials"
	case StateAuthenticated:
		return "authenticated"
	case StateRejectedCredentials:
		return "rejected-credentials"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// RecordStore is where synced gradebooks are written to, it is implemented by
// gradestore.Store.
type RecordStore interface {
	PersistIfAbsent(ctx context.Context, record gradestore.Record) (bool, error)
	Get(ctx context.Context, ownerId int64) (gradestore.Record, bool, error)
}

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout bounds every single request, it defaults to DefaultTimeout.
	Timeout time.Duration
	// CloudflareBypass wraps the transport with a browser-like TLS fingerprint.
	CloudflareBypass bool
	// UserAgent overrides the randomly picked user agent.
	UserAgent string
	// RateLimit is the maximum number of requests per second, it defaults to 2.
	RateLimit rate.Limit

	Store     RecordStore
	Time      chrono.API
	Telemetry telemetry.API
	// Output optionally receives a dump of every request, see restyutil.
	Output restyutil.InstrumentOutput
}

// Client is a single user's session with the portal. It is not safe for
// concurrent use.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	cookies *CookieStore

	state         State
	authenticated bool
	formToken     *int
	lastSyncErr   error

	store RecordStore
	time  chrono.API
	tel   telemetry.API
}

func NewClient(opts Options) (*Client, error) {
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Telemetry)

	tel := telemetry.NewScopedAPI("isu_scraper", opts.Telemetry)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsedBaseUrl.Scheme == "" || parsedBaseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseUrl)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = randomUserAgent()
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(parsedBaseUrl.Scheme + "://" + parsedBaseUrl.Host)
	// cookies are kept in the CookieStore so that merges stay first-wins
	httpClient.SetCookieJar(nil)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeaders(map[string]string{
		"user-agent":      userAgent,
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"accept-language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	})
	// redirects are followed by hand so cookies can be merged at every hop
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	httpClient.SetTimeout(timeout)

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	// 2 requests max per second by default
	// max burst >= 2 just means that no requests will be dropped
	limit := opts.RateLimit
	if limit <= 0 {
		limit = 2
	}
	rateLimiter := rate.NewLimiter(limit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	return &Client{
		baseUrl: parsedBaseUrl,
		http:    httpClient,
		cookies: NewCookieStore(),
		state:   StateAnonymous,
		store:   opts.Store,
		time:    opts.Time,
		tel:     tel,
	}, nil
}

func (c *Client) State() State {
	return c.state
}

func (c *Client) IsAuthenticated() bool {
	return c.authenticated
}

// Cookies returns every cookie of the session, sorted by name.
func (c *Client) Cookies() []Cookie {
	return c.cookies.List()
}

// FormToken returns the last login form token that was seen.
func (c *Client) FormToken() (int, bool) {
	if c.formToken == nil {
		return 0, false
	}
	return *c.formToken, true
}

// LastSyncError returns the error of the gradebook sync that ran after the
// last successful login, if it failed.
func (c *Client) LastSyncError() error {
	return c.lastSyncErr
}

// OwnerID returns the portal's person id from the identity cookie.
func (c *Client) OwnerID() (int64, bool) {
	cookie, ok := c.cookies.Get(CookiePerson)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Resume adopts the cookies of a session that was negotiated elsewhere (for
// example by a browser), the client is considered authenticated if every
// registered cookie is present afterwards.
func (c *Client) Resume(source CookieSource) bool {
	c.cookies.Merge(source)
	if c.cookies.ContainsAll(RegisteredCookies...) {
		c.authenticated = true
		c.state = StateAuthenticated
	}
	return c.authenticated
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetCookies(c.cookies.HttpCookies())
}

func (c *Client) get(ctx context.Context, endpoint string) (*resty.Response, error) {
	res, err := c.request(ctx).Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, endpoint, err)
	}
	return res, nil
}

func (c *Client) mergeCookies(res *resty.Response) int {
	return c.cookies.Merge(FromHttpCookies(res.Cookies(), c.time.Now()))
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// followRedirects follows the redirects starting at res, merging the cookies
// of every hop. Redirects that leave the portal's host are not followed.
func (c *Client) followRedirects(ctx context.Context, res *resty.Response) (*resty.Response, error) {
	for hops := 0; isRedirect(res.StatusCode()); hops++ {
		if hops >= maxRedirects {
			return res, fmt.Errorf("%w: stopped after %d redirects", ErrNetwork, maxRedirects)
		}
		location := res.Header().Get("Location")
		if location == "" {
			return res, nil
		}
		next, err := res.Request.RawRequest.URL.Parse(location)
		if err != nil {
			return res, fmt.Errorf("%w: redirect location %q: %w", ErrParseStructure, location, err)
		}
		if next.Host != c.baseUrl.Host {
			c.tel.ReportDebug("not following off-site redirect", next.String())
			return res, nil
		}

		res, err = c.get(ctx, next.String())
		if err != nil {
			return nil, err
		}
		c.mergeCookies(res)
	}
	return res, nil
}

func isPersonCard(res *resty.Response) bool {
	if res == nil || res.StatusCode() != http.StatusOK || res.Request == nil || res.Request.RawRequest == nil {
		return false
	}
	return res.Request.RawRequest.URL.Path == pathPersonCard
}

// bootstrap visits the index page to obtain a php session cookie.
func (c *Client) bootstrap(ctx context.Context) error {
	res, err := c.get(ctx, "/")
	if err != nil {
		return err
	}
	c.mergeCookies(res)
	_, err = c.followRedirects(ctx, res)
	return err
}

// Authenticate logs into the portal. Rejected credentials are not an error,
// they return false. After a successful login the gradebook is synced, a
// failing sync is reported and kept in LastSyncError but does not undo the
// login.
func (c *Client) Authenticate(ctx context.Context, login, password string) (bool, error) {
	if _, ok := c.cookies.Get(CookieSession); !ok {
		c.state = StateBootstrappingCookies
		err := c.bootstrap(ctx)
		if err != nil {
			c.tel.ReportWarning(report_client_bootstrap, err)
		}
	}

	c.state = StateFetchingLoginForm
	res, err := c.get(ctx, pathLogin)
	if err != nil {
		c.state = StateAnonymous
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("fetch login form: %w", err))
		return false, fmt.Errorf("%w: %w", ErrLoginFormUnavailable, err)
	}
	doc, err := htmlutil.ParseDocument(res.Body())
	if err != nil {
		c.state = StateAnonymous
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("parse login form: %w", err))
		return false, fmt.Errorf("%w: %w", ErrLoginFormUnavailable, err)
	}
	token, err := ExtractFormToken(doc)
	if err != nil {
		c.state = StateAnonymous
		c.tel.ReportBroken(report_client_authenticate, err, res.StatusCode())
		return false, fmt.Errorf("%w: %w", ErrLoginFormUnavailable, err)
	}
	c.formToken = &token

	c.state = StateSubmittingCredentials
	res, err = c.request(ctx).
		SetFormData(map[string]string{
			"form_num": strconv.Itoa(token),
			"login":    login,
			"password": password,
		}).
		Post(pathLogin)
	if err != nil {
		c.state = StateAnonymous
		err = fmt.Errorf("%w: POST %s: %w", ErrNetwork, pathLogin, err)
		c.tel.ReportBroken(report_client_authenticate, err)
		return false, err
	}

	// the portal renders the login form again when it rejects credentials
	if res.StatusCode() == http.StatusOK {
		c.state = StateRejectedCredentials
		c.tel.ReportDebug("credentials rejected")
		return false, nil
	}

	c.authenticated = true
	c.state = StateAuthenticated
	c.mergeCookies(res)
	landing, err := c.followRedirects(ctx, res)
	if err != nil {
		c.tel.ReportWarning(report_client_authenticate, fmt.Errorf("follow login redirect: %w", err))
	}

	// the portal usually redirects to the person card, which the sync would
	// otherwise fetch a second time
	var card []byte
	if err == nil && isPersonCard(landing) {
		card = landing.Body()
	}
	_, _, err = c.syncGradebook(ctx, card)
	c.lastSyncErr = err
	if err != nil {
		c.tel.ReportBroken(report_client_sync, err)
	}
	return true, nil
}

// Logout ends the portal session and forgets every cookie, so the next
// Authenticate starts from a fresh session. The client is unauthenticated
// afterwards even if the request fails.
func (c *Client) Logout(ctx context.Context) error {
	c.authenticated = false
	c.state = StateAnonymous

	_, err := c.request(ctx).
		SetQueryParam("exit", "exit").
		Get("/")
	c.cookies.Clear()
	c.formToken = nil
	if err != nil {
		err = fmt.Errorf("%w: logout: %w", ErrNetwork, err)
		c.tel.ReportWarning(report_client_logout, err)
		return err
	}
	return nil
}

// GradebookRecord returns the stored gradebook of the given owner.
func (c *Client) GradebookRecord(ctx context.Context, ownerId int64) (gradestore.Record, bool, error) {
	return c.store.Get(ctx, ownerId)
}
