package site

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func testRoot() fstest.MapFS {
	return fstest.MapFS{
		"index.html":                {Data: []byte("<html>index</html>")},
		"favicon.ico":               {Data: []byte{0, 0, 1, 0}},
		"about.html":                {Data: []byte("<html>about</html>")},
		"_next/static/chunks/a.js":  {Data: []byte("console.log('a')")},
		"_next/static/css/main.css": {Data: []byte("body{}")},
		"docs/guide.txt":            {Data: []byte("guide")},
	}
}

func TestResolveStaticPath(t *testing.T) {
	root := testRoot()

	tests := []struct {
		name     string
		path     string
		expected Resolution
	}{
		{"ルート", "/", Resolution{Name: "index.html", Fallback: true}},
		{"存在するファイル", "/favicon.ico", Resolution{Name: "favicon.ico"}},
		{"ネストしたファイル", "/docs/guide.txt", Resolution{Name: "docs/guide.txt"}},
		{"インデックスそのもの", "/index.html", Resolution{Name: "index.html"}},
		{"クライアントルート", "/songs/42", Resolution{Name: "index.html", Fallback: true}},
		{"ディレクトリ", "/docs", Resolution{Name: "index.html", Fallback: true}},
		{"トラバーサル", "/../../etc/passwd", Resolution{Name: "index.html", Fallback: true}},
		{"トラバーサルで実在ファイル", "/x/../../about.html", Resolution{Name: "about.html"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStaticPath(root, tt.path)
			if got != tt.expected {
				t.Errorf("ResolveStaticPath(%q) = %+v, want %+v", tt.path, got, tt.expected)
			}
		})
	}
}

func get(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(b)
}

func TestSPAHandler(t *testing.T) {
	s := New(testRoot(), nil, nil)
	h := s.SPAHandler()

	tests := []struct {
		path         string
		body         string
		contentType  string
		cacheControl string
	}{
		{"/", "<html>index</html>", "text/html", indexCacheControl},
		{"/settings/profile", "<html>index</html>", "text/html", indexCacheControl},
		{"/about.html", "<html>about</html>", "text/html", fileCacheControl},
		{"/docs/guide.txt", "guide", "text/plain", fileCacheControl},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, h, tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if got := body(t, resp); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %s", ct, tt.contentType)
			}
			if cc := resp.Header.Get("Cache-Control"); cc != tt.cacheControl {
				t.Errorf("Cache-Control = %q, want %q", cc, tt.cacheControl)
			}
		})
	}
}

func TestSPAHandler_MissingIndex(t *testing.T) {
	root := testRoot()
	delete(root, "index.html")

	called := false
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNotFound)
	})

	resp := get(t, New(root, nil, notFound).SPAHandler(), "/anything")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if !called {
		t.Error("notFound handler should be called")
	}

	// 実在ファイルは引き続き配信される
	resp = get(t, New(root, nil, notFound).SPAHandler(), "/about.html")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAssetHandler(t *testing.T) {
	h := New(testRoot(), nil, nil).AssetHandler()

	t.Run("存在するアセット", func(t *testing.T) {
		resp := get(t, h, "/_next/static/chunks/a.js")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if got := body(t, resp); got != "console.log('a')" {
			t.Errorf("body = %q", got)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "javascript") {
			t.Errorf("Content-Type = %q, want javascript", ct)
		}
		if cc := resp.Header.Get("Cache-Control"); cc != assetCacheControl {
			t.Errorf("Cache-Control = %q", cc)
		}
	})

	t.Run("CSS", func(t *testing.T) {
		resp := get(t, h, "/_next/static/css/main.css")
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
			t.Errorf("Content-Type = %q, want text/css", ct)
		}
	})

	for _, path := range []string{"/_next/static/missing.js", "/_next/static", "/_next/../index.html/x"} {
		t.Run("404 "+path, func(t *testing.T) {
			resp := get(t, h, path)
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 404", resp.StatusCode)
			}
		})
	}
}

func TestHandlers_Head(t *testing.T) {
	h := New(testRoot(), nil, nil).SPAHandler()

	req := httptest.NewRequest(http.MethodHead, "/about.html", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response should have no body, got %d bytes", rec.Body.Len())
	}
}
