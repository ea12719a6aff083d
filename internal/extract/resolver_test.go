package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Host
}

func TestResolveFollowsRedirectToPublisher(t *testing.T) {
	publisher := htmlServer(t, `<html><body><article><p>`+longPara+`</p></article></body></html>`)
	wrapper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, publisher.URL+"/story", http.StatusFound)
	}))
	defer wrapper.Close()

	r := NewResolver(ResolverOptions{IndirectionHosts: []string{hostOf(t, wrapper.URL)}})
	assert.Equal(t, publisher.URL+"/story", r.Resolve(context.Background(), wrapper.URL+"/rss/articles/abc"))
}

func TestResolveCanonicalAnchor(t *testing.T) {
	wrapper := htmlServer(t, `<html><body>
<a href="/about">about</a>
<a data-n-au="https://publisher.example/health/42" href="./read/abc">Читать</a>
</body></html>`)

	r := NewResolver(ResolverOptions{IndirectionHosts: []string{hostOf(t, wrapper.URL)}})
	assert.Equal(t, "https://publisher.example/health/42", r.Resolve(context.Background(), wrapper.URL+"/rss/articles/abc"))
}

func TestResolveMetaRefresh(t *testing.T) {
	wrapper := htmlServer(t, `<html><head>
<meta http-equiv="Refresh" content="0; URL='https://publisher.example/a/1'">
</head><body></body></html>`)

	r := NewResolver(ResolverOptions{IndirectionHosts: []string{hostOf(t, wrapper.URL)}})
	assert.Equal(t, "https://publisher.example/a/1", r.Resolve(context.Background(), wrapper.URL+"/x"))
}

func TestResolveFallsBackToOriginal(t *testing.T) {
	t.Run("indirection page without target", func(t *testing.T) {
		wrapper := htmlServer(t, `<html><body><p>nothing here</p></body></html>`)
		r := NewResolver(ResolverOptions{IndirectionHosts: []string{hostOf(t, wrapper.URL)}})
		assert.Equal(t, wrapper.URL+"/x", r.Resolve(context.Background(), wrapper.URL+"/x"))
	})

	t.Run("fetch failure", func(t *testing.T) {
		r := NewResolver(ResolverOptions{})
		assert.Equal(t, "http://127.0.0.1:1/x", r.Resolve(context.Background(), "http://127.0.0.1:1/x"))
	})

	t.Run("not an indirection host", func(t *testing.T) {
		page := htmlServer(t, `<html><body><a data-n-au="https://elsewhere/1">x</a></body></html>`)
		r := NewResolver(ResolverOptions{IndirectionHosts: []string{"news.google.com"}})
		assert.Equal(t, page.URL+"/a", r.Resolve(context.Background(), page.URL+"/a"))
	})
}

func TestExtractWithResolver(t *testing.T) {
	publisher := htmlServer(t, `<html><head><meta property="og:image" content="/lead.jpg"></head>
<body><article><p>`+longPara+`</p></article></body></html>`)
	wrapper := htmlServer(t, `<html><body><a data-n-au="`+publisher.URL+`/story">go</a></body></html>`)

	ex := New(Options{}).WithResolver(NewResolver(ResolverOptions{IndirectionHosts: []string{hostOf(t, wrapper.URL)}}))
	res := ex.Extract(context.Background(), wrapper.URL+"/wrap")

	require.NoError(t, res.Err)
	assert.Equal(t, wrapper.URL+"/wrap", res.URL)
	assert.Equal(t, publisher.URL+"/story", res.ResolvedURL)
	assert.Equal(t, publisher.URL+"/lead.jpg", res.ImageURL)
	assert.Equal(t, longPara, res.Text)
}
