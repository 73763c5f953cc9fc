package duckduckgo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/stock-analyst/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsFixture = `{"results":[
	{"date":1718900000,"title":"Meta shares &amp; AI spend","excerpt":"<b>Meta</b> raised its capex guidance.","url":"https://news.example.com/meta-capex","source":"Reuters"},
	{"date":0,"title":"","excerpt":"no title","url":"https://news.example.com/skip","source":"Nobody"},
	{"date":1718800000,"title":"Meta earnings preview","excerpt":"Analysts expect growth.","url":"https://news.example.com/preview","source":"CNBC"},
	{"date":1718700000,"title":"Third story","excerpt":"","url":"https://news.example.com/third","source":"AP"}
]}`

func newNewsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			assert.Equal(t, "meta earnings", r.URL.Query().Get("q"))
			_, _ = io.WriteString(w, `<html><script>DDG.deep.initialize('/d.js?q=meta&kl=wt-wt&vqd=4-211&p=1');</script><body></body></html>`)
		case "/news.js":
			q := r.URL.Query()
			if q.Get("vqd") != "4-211" {
				http.Error(w, "bad vqd", http.StatusForbidden)
				return
			}
			assert.Equal(t, "meta earnings", q.Get("q"))
			assert.Equal(t, "json", q.Get("o"))
			_, _ = io.WriteString(w, newsFixture)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewsTool(t *testing.T) {
	srv := newNewsServer(t)
	c := NewClient(srv.URL, tools.NewFetcher(srv.Client(), time.Second, 0), WithNewsURLs(srv.URL, srv.URL))
	ts := Toolkit(c, Options{MaxResults: 2})
	require.Len(t, ts, 2)
	assert.Equal(t, "duckduckgo_news", ts[1].Definition().Name)

	out, err := ts[1].Execute(context.Background(), `{"query":"meta earnings"}`)
	require.NoError(t, err)

	var got []NewsResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, NewsResult{
		Title:  "Meta shares & AI spend",
		Href:   "https://news.example.com/meta-capex",
		Body:   "Meta raised its capex guidance.",
		Date:   time.Unix(1718900000, 0).UTC().Format(time.RFC3339),
		Source: "Reuters",
	}, got[0])
	assert.Equal(t, "CNBC", got[1].Source)
}

func TestNewsMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body>blocked</body></html>`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tools.NewFetcher(srv.Client(), time.Second, 0), WithNewsURLs(srv.URL, srv.URL))
	_, err := c.News(context.Background(), "meta", 5)
	assert.ErrorContains(t, err, "vqd token not found")
}

func TestVQDPattern(t *testing.T) {
	for _, page := range []string{`vqd="4-123-abc"`, `vqd='4-123-abc'`, `&vqd=4-123-abc&p=1`} {
		m := vqdPattern.FindStringSubmatch(page)
		require.NotNil(t, m, page)
		assert.Equal(t, "4-123-abc", m[1])
	}
}

func TestToolkitNewsOption(t *testing.T) {
	c := NewClient("", tools.NewFetcher(nil, time.Second, 0))
	off := false

	assert.Len(t, Toolkit(c, Options{}), 2)
	assert.Len(t, Toolkit(c, Options{News: &off}), 1)
}
