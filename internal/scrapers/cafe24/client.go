// client.go contains the session handling of a cafe24 storefront: building the http
// client, logging in and fetching pages. It knows nothing about what the pages mean.

package cafe24

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"partwatch/internal/components/assert"
	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

const (
	report_client_login      = "client.login"
	report_client_fetch_page = "client.fetch-page"
)

const (
	LOGIN_PATH   = "/member/login.html"
	ACCOUNT_PATH = "/myshop/index.html"
	LIST_PATH    = "/product/list.html"
)

const REQUEST_TIMEOUT = 30 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client is an http session against a single storefront.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel  telemetry.API
	time chrono.API
}

func NewClient(baseUrl string, clock chrono.API, tel telemetry.API) (*Client, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("cafe24_scraper", tel)

	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}
	if parsedBaseUrl.Scheme == "" || parsedBaseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(parsedBaseUrl.Scheme + "://" + parsedBaseUrl.Host)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(REQUEST_TIMEOUT)

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		tel:     tel,
		time:    clock,
	}, nil
}

// page is a fetched and parsed html document along with the url it ended up at.
type page struct {
	url *url.URL
	doc *goquery.Document
}

// get fetches an endpoint, any transport error or error status is returned as is.
func (c *Client) get(ctx context.Context, endpoint string) (page, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return page{}, err
	}
	if res.IsError() {
		return page{}, fmt.Errorf("unexpected status: %s", res.Status())
	}
	return c.parse(res)
}

func (c *Client) parse(res *resty.Response) (page, error) {
	body, err := charset.NewReader(
		bytes.NewReader(res.Body()),
		res.Header().Get("content-type"),
	)
	if err != nil {
		return page{}, fmt.Errorf("decode body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return page{}, fmt.Errorf("parse: %w", err)
	}

	finalUrl := c.BaseUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL
	}
	return page{url: finalUrl, doc: doc}, nil
}

// Login authenticates the session, it succeeds only if the account page looks logged
// in afterwards. Every failure is returned as an *AuthError.
func (c *Client) Login(ctx context.Context, username, password string) error {
	loginError := func(err error) error {
		return &AuthError{Cause: err}
	}

	c.tel.ReportDebug("open login page", LOGIN_PATH)
	loginPage, err := c.get(ctx, LOGIN_PATH)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("login page request: %w", err),
		)
		return loginError(err)
	}

	form, strategy := loginFormChain.First(loginPage.doc.Selection)
	if strategy == "" {
		c.tel.ReportBroken(report_client_login, ErrFormNotFound)
		return loginError(ErrFormNotFound)
	}
	form = form.First()
	c.tel.ReportDebug("found login form", strategy)

	payload := map[string]string{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		payload[name] = input.AttrOr("value", "")
	})
	payload["member_id"] = username
	payload["member_passwd"] = password
	payload["use_login_keeping"] = "F"

	action, err := c.resolveAction(form.AttrOr("action", ""))
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("resolve form action: %w", err),
		)
		return loginError(err)
	}

	origin := c.BaseUrl.Scheme + "://" + c.BaseUrl.Host
	_, err = c.Http.R().
		SetContext(ctx).
		SetHeader("referer", origin+LOGIN_PATH).
		SetHeader("origin", origin).
		SetFormData(payload).
		Post(action)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("login request: %w", err),
		)
		return loginError(err)
	}

	// the login response is not trusted, the site does not always redirect after it
	c.tel.ReportDebug("open account page", ACCOUNT_PATH)
	account, err := c.get(ctx, ACCOUNT_PATH)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("account page request: %w", err),
		)
		return loginError(err)
	}

	html, err := account.doc.Html()
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("serialize account page: %w", err),
		)
		return loginError(err)
	}
	if !looksLoggedIn(account.url, html) {
		c.tel.ReportWarning(
			report_client_login,
			ErrProbeFailed,
			account.url.String(),
		)
		return loginError(ErrProbeFailed)
	}

	c.tel.ReportDebug("logged in", username)
	return nil
}

// looksLoggedIn is a heuristic on the wording of the account page: either the session
// stayed on the account page, or the page has the edit profile link and no login link.
func looksLoggedIn(final *url.URL, html string) bool {
	if strings.Contains(final.Path, ACCOUNT_PATH) {
		return true
	}
	return !strings.Contains(html, "로그인") && strings.Contains(html, "modify.html")
}

func (c *Client) resolveAction(action string) (string, error) {
	if action == "" {
		return c.BaseUrl.ResolveReference(&url.URL{Path: LOGIN_PATH}).String(), nil
	}
	parsed, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	if !strings.HasPrefix(parsed.Path, "/") {
		parsed.Path = "/" + parsed.Path
	}
	return c.BaseUrl.ResolveReference(parsed).String(), nil
}
