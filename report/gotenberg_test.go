package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("landscape"))
		assert.Equal(t, "500ms", r.FormValue("waitDelay"))

		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "index.html", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "<h1>Annual Summary</h1>", string(content))

		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, PageOptions{Landscape: true, WaitDelay: 500 * time.Millisecond})
	pdf, err := c.RenderHTML(context.Background(), "<h1>Annual Summary</h1>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
}

func TestRenderHTMLFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, PageOptions{})
	_, err := c.RenderHTML(context.Background(), "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chromium crashed")
	assert.Error(t, c.Ping(context.Background()))

	_, err = NewClient("", 0, PageOptions{}).RenderHTML(context.Background(), "")
	assert.Error(t, err)
}
