package cafe24

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/scrapers/cafe24/cafe24test"

	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, site *cafe24test.Site) (*Client, *chrono.FakeImpl, *telemetry.RecordingAPI) {
	server := cafe24test.NewServer(t, site)
	clock := chrono.NewFakeImpl(time.Date(2024, 5, 3, 9, 0, 0, 0, chrono.KST()))
	tel := &telemetry.RecordingAPI{}
	client, err := NewClient(server.URL, clock, tel)
	require.NoError(t, err)
	return client, clock, tel
}

func TestLogin(t *testing.T) {
	testCases := []struct {
		name      string
		loginPage string
		password  string
		cause     error
	}{
		{
			name:      "form by id",
			loginPage: cafe24test.LoginFormById,
			password:  "secret",
		},
		{
			name:      "form by input",
			loginPage: cafe24test.LoginFormByInput,
			password:  "secret",
		},
		{
			name:      "form missing",
			loginPage: cafe24test.LoginFormMissing,
			password:  "secret",
			cause:     ErrFormNotFound,
		},
		{
			name:      "wrong password",
			loginPage: cafe24test.LoginFormById,
			password:  "nope",
			cause:     ErrProbeFailed,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			site := &cafe24test.Site{
				Username:  "fixcon",
				Password:  "secret",
				LoginPage: test.loginPage,
			}
			client, _, tel := newTestClient(t, site)

			err := client.Login(context.Background(), "fixcon", test.password)
			if test.cause == nil {
				require.NoError(t, err)
				return
			}

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			require.ErrorIs(t, err, test.cause)
			require.NotEmpty(t, append(
				tel.Find("broken", report_client_login),
				tel.Find("warning", report_client_login)...,
			))
		})
	}
}

func TestLoginForwardsHiddenInputs(t *testing.T) {
	site := &cafe24test.Site{
		Username:  "fixcon",
		Password:  "secret",
		LoginPage: cafe24test.LoginFormById,
	}
	client, _, _ := newTestClient(t, site)

	err := client.Login(context.Background(), "fixcon", "secret")
	require.NoError(t, err)

	form := site.LoginForm()
	require.Equal(t, cafe24test.HIDDEN_TOKEN, form.Get("ec_login_token"))
	require.Equal(t, "/myshop/index.html", form.Get("returnUrl"))
	require.Equal(t, "fixcon", form.Get("member_id"))
	require.Equal(t, "secret", form.Get("member_passwd"))
	require.Equal(t, "F", form.Get("use_login_keeping"))

	headers := site.LoginHeaders()
	origin := client.BaseUrl.Scheme + "://" + client.BaseUrl.Host
	require.Equal(t, origin, headers.Get("origin"))
	require.Equal(t, origin+LOGIN_PATH, headers.Get("referer"))
	require.Contains(t, headers.Get("content-type"), "application/x-www-form-urlencoded")
}

func TestLoginUnreachable(t *testing.T) {
	clock := chrono.NewFakeImpl(time.Now())
	client, err := NewClient("http://127.0.0.1:1", clock, &telemetry.RecordingAPI{})
	require.NoError(t, err)

	err = client.Login(context.Background(), "fixcon", "secret")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
}

func TestNewClientRejectsRelativeUrl(t *testing.T) {
	_, err := NewClient("/member/login.html", chrono.NewStandardImpl(), &telemetry.RecordingAPI{})
	require.Error(t, err)
}

func TestLooksLoggedIn(t *testing.T) {
	account, _ := url.Parse("https://fixcon.co.kr/myshop/index.html")
	login, _ := url.Parse("https://fixcon.co.kr/member/login.html")

	require.True(t, looksLoggedIn(account, "<html>로그인</html>"))
	require.True(t, looksLoggedIn(login, `<a href="/member/modify.html">수정</a>`))
	require.False(t, looksLoggedIn(login, `<a href="/member/modify.html">로그인</a>`))
	require.False(t, looksLoggedIn(login, "<html></html>"))
}

func TestResolveAction(t *testing.T) {
	client, err := NewClient("https://fixcon.co.kr", chrono.NewStandardImpl(), &telemetry.RecordingAPI{})
	require.NoError(t, err)

	testCases := []struct {
		action   string
		expected string
	}{
		{action: "", expected: "https://fixcon.co.kr/member/login.html"},
		{action: "/exec/front/Member/login/", expected: "https://fixcon.co.kr/exec/front/Member/login/"},
		{action: "exec/front/Member/login/", expected: "https://fixcon.co.kr/exec/front/Member/login/"},
		{action: "https://other.example/login", expected: "https://other.example/login"},
	}
	for _, test := range testCases {
		resolved, err := client.resolveAction(test.action)
		require.NoError(t, err)
		require.Equal(t, test.expected, resolved, test.action)
	}
}
