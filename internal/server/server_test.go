package server

import (
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/gorilla/websocket"
	"github.com/milden6/ptdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.New("NOOP")
	code := m.Run()
	logger.OnExit()
	os.Exit(code)
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	trie := ptdict.NewTrie()
	for _, word := range []string{"cat", "car", "cart", "carton", "dog", "dot"} {
		require.NoError(t, trie.AddWord(word))
	}
	data, err := trie.Encode()
	require.NoError(t, err)
	dict, err := ptdict.FromBytes(data)
	require.NoError(t, err)

	srv := httptest.NewServer(New(cfg, dict, logger.Sugar.WithServiceName("server")).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSuggestJSON(t *testing.T) {
	srv := newTestServer(t, Config{MinPrefix: 1, Limit: 3})

	resp, body := get(t, srv, "/suggest?prefix=car")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var result suggestions
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, suggestions{Prefix: "car", Words: []string{"car", "cart", "carton"}}, result)

	_, body = get(t, srv, "/suggest?prefix=c&limit=2")
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, []string{"car", "cart"}, result.Words)

	// the configured limit caps what the client asks for
	_, body = get(t, srv, "/suggest?prefix=c&limit=50")
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Len(t, result.Words, 3)

	_, body = get(t, srv, "/suggest?prefix=zebra")
	assert.JSONEq(t, `{"prefix":"zebra","words":[]}`, body)
}

func TestSuggestJSONRejects(t *testing.T) {
	srv := newTestServer(t, Config{MinPrefix: 2})

	resp, body := get(t, srv, "/suggest?prefix=c")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, ErrPrefixTooShort.Error())

	resp, _ = get(t, srv, "/suggest?prefix=ca&limit=lots")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv, "/suggest?prefix=ca&limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestSearchForm(t *testing.T) {
	srv := newTestServer(t, Config{MinPrefix: 1})

	resp, body := get(t, srv, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	match := csrfField.FindStringSubmatch(body)
	require.Len(t, match, 2, body)

	form := url.Values{"prefix": {"do"}, "csrf_token": {html.UnescapeString(match[1])}}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", srv.URL)
	req.Header.Set("Referer", srv.URL+"/")
	for _, cookie := range resp.Cookies() {
		req.AddCookie(cookie)
	}

	post, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer post.Body.Close()
	page, err := io.ReadAll(post.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, post.StatusCode, string(page))
	assert.Contains(t, string(page), "<div class='item'>dog</div>")
	assert.Contains(t, string(page), "<div class='item'>dot</div>")
	assert.NotContains(t, string(page), "<div class='item'>cat</div>")
}

func TestSearchFormRejectsOtherOrigin(t *testing.T) {
	srv := newTestServer(t, Config{MinPrefix: 1})

	resp, body := get(t, srv, "/")
	match := csrfField.FindStringSubmatch(body)
	require.Len(t, match, 2, body)

	form := url.Values{"prefix": {"do"}, "csrf_token": {html.UnescapeString(match[1])}}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://elsewhere.example")
	for _, cookie := range resp.Cookies() {
		req.AddCookie(cookie)
	}

	post, err := srv.Client().Do(req)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusBadRequest, post.StatusCode)
}

func TestCSRFCookieOverPlainHTTP(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, _ := get(t, srv, "/")
	require.NotEmpty(t, resp.Cookies())
	for _, cookie := range resp.Cookies() {
		assert.False(t, cookie.Secure, cookie.Name)
	}
}

func TestSearchFormRequiresToken(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := srv.Client().PostForm(srv.URL+"/", url.Values{"prefix": {"do"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocket(t *testing.T) {
	srv := newTestServer(t, Config{MinPrefix: 1, Limit: 10})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, tc := range []struct {
		req  suggestRequest
		want suggestions
	}{
		{suggestRequest{Prefix: "ca"}, suggestions{Prefix: "ca", Words: []string{"car", "cart", "carton", "cat"}}},
		{suggestRequest{Prefix: "ca", Limit: 1}, suggestions{Prefix: "ca", Words: []string{"car"}}},
		{suggestRequest{Prefix: "do"}, suggestions{Prefix: "do", Words: []string{"dog", "dot"}}},
		{suggestRequest{Prefix: "x"}, suggestions{Prefix: "x", Words: []string{}}},
	} {
		require.NoError(t, conn.WriteJSON(tc.req))
		var got suggestions
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, tc.want, got)
	}

	require.NoError(t, conn.WriteJSON(suggestRequest{}))
	var got suggestions
	require.NoError(t, conn.ReadJSON(&got))
	assert.Contains(t, got.Error, ErrPrefixTooShort.Error())
	assert.Empty(t, got.Words)
}

type panicSearcher struct{}

func (panicSearcher) Suggest(string, int) ([]string, error) {
	panic("boom")
}

func TestRecoverPanic(t *testing.T) {
	srv := httptest.NewServer(New(Config{}, panicSearcher{}, logger.Sugar.WithServiceName("server")).Routes())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/suggest?prefix=a")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, resp.Close)
}
