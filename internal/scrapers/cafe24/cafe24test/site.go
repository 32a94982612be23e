// Package cafe24test serves a small fake storefront that behaves like the parts of a
// cafe24 site the scraper touches.
package cafe24test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

const (
	LOGIN_ACTION   = "/exec/front/Member/login/"
	SESSION_COOKIE = "ECSESSID"
	HIDDEN_TOKEN   = "ec-token-1234"
)

// LoginFormById is a login page where the form carries the usual id.
var LoginFormById = fmt.Sprintf(`<html><body>
<h2>로그인</h2>
<form id="member_form_0" action="%s" method="post">
	<input type="hidden" name="ec_login_token" value="%s">
	<input type="hidden" name="returnUrl" value="/myshop/index.html">
	<input type="text" name="member_id">
	<input type="password" name="member_passwd">
	<input type="checkbox" name="use_login_keeping" value="T">
	<input type="submit">
</form>
</body></html>`, LOGIN_ACTION, HIDDEN_TOKEN)

// LoginFormByInput is a login page whose form can only be found through its inputs.
var LoginFormByInput = fmt.Sprintf(`<html><body>
<h2>로그인</h2>
<form class="login" action="%s" method="post">
	<div><input type="hidden" name="ec_login_token" value="%s"></div>
	<div><input type="text" name="member_id"></div>
	<div><input type="password" name="member_passwd"></div>
</form>
</body></html>`, strings.TrimPrefix(LOGIN_ACTION, "/"), HIDDEN_TOKEN)

// LoginFormMissing is a login page without any login form.
const LoginFormMissing = `<html><body><h2>점검중</h2><p>잠시 후 다시 로그인 해주세요.</p></body></html>`

// Item renders a listing item the way the storefront theme does.
func Item(no int, name, price string, soldOut bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<li class="xans-record-" id="anchorBoxId_%d">`, no)
	fmt.Fprintf(&b, `<div class="thumbnail"><a href="/product/detail.html?product_no=%d"><img src="//cdn.example.com/product/%d.jpg"></a>`, no, no)
	if soldOut {
		b.WriteString(`<img src="/web/upload/icon_sold.gif" alt="품절">`)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(
		&b,
		`<p class="name"><a href="/product/detail.html?product_no=%d"><span class="title">상품명 :</span> <span>%s</span></a></p>`,
		no, name,
	)
	if price != "" {
		fmt.Fprintf(&b, `<ul class="description"><li><span>판매가</span> : <span>%s</span></li><li><span>적립금</span></li></ul>`, price)
	}
	b.WriteString(`</li>`)
	return b.String()
}

// ListPage wraps items in the listing markup of a category page.
func ListPage(items ...string) string {
	return `<html><body><div class="xans-product-listnormal"><ul class="prdList grid4">` +
		strings.Join(items, "\n") +
		`</ul></div></body></html>`
}

// Site is the state of the fake storefront.
type Site struct {
	Username string
	Password string

	// LoginPage is the html served on the login page.
	LoginPage string
	// Pages holds the items of every page of every category, keyed by category id.
	Pages map[string][][]string
	// FailPage makes the given page of a category answer with a server error.
	FailPage map[string]int

	mu         sync.Mutex
	loginForm  url.Values
	loginHeads http.Header
	requests   []string
}

// LoginForm returns the last form posted to the login action.
func (s *Site) LoginForm() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginForm
}

// LoginHeaders returns the headers of the last login post.
func (s *Site) LoginHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginHeads
}

// Requests returns the path and query of every listing request in order.
func (s *Site) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Site) loggedIn(r *http.Request) bool {
	cookie, err := r.Cookie(SESSION_COOKIE)
	return err == nil && cookie.Value == "ok"
}

// Handler returns the http handler of the site.
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/member/login.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, s.LoginPage)
	})

	mux.HandleFunc(LOGIN_ACTION, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		err := r.ParseForm()
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.loginForm = r.PostForm
		s.loginHeads = r.Header.Clone()
		s.mu.Unlock()

		if r.PostForm.Get("member_id") == s.Username &&
			r.PostForm.Get("member_passwd") == s.Password &&
			r.PostForm.Get("ec_login_token") == HIDDEN_TOKEN {
			http.SetCookie(w, &http.Cookie{Name: SESSION_COOKIE, Value: "ok", Path: "/"})
		}
		http.Redirect(w, r, "/index.html", http.StatusFound)
	})

	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>home</body></html>`)
	})

	mux.HandleFunc("/myshop/index.html", func(w http.ResponseWriter, r *http.Request) {
		if !s.loggedIn(r) {
			http.Redirect(w, r, "/member/login.html?noMemberOrder=&returnUrl=%2Fmyshop%2Findex.html", http.StatusFound)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><a href="/member/modify.html">회원정보 수정</a><a href="/exec/front/Member/logout/">로그아웃</a></body></html>`)
	})

	mux.HandleFunc("/product/list.html", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.mu.Unlock()

		category := r.URL.Query().Get("cate_no")
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if s.FailPage != nil && s.FailPage[category] == page {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("content-type", "text/html; charset=utf-8")
		pages := s.Pages[category]
		if page > len(pages) {
			fmt.Fprint(w, ListPage())
			return
		}
		fmt.Fprint(w, ListPage(pages[page-1]...))
	})

	return mux
}

// NewServer starts the site on a local port, it is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }, site *Site) *httptest.Server {
	server := httptest.NewServer(site.Handler())
	t.Cleanup(server.Close)
	return server
}
