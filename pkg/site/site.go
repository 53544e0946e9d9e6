// Package site serves a pre-built single-page application: hashed assets under
// a fixed prefix, real files when they exist, and the index document for every
// other path so that client-side routing can take over.
package site

import (
	"bytes"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/zurustar/semitone/pkg/fileutil"
)

// IndexDocument はフォールバック時に返すファイル
const IndexDocument = "index.html"

const (
	assetCacheControl = "public, max-age=31536000, immutable"
	fileCacheControl  = "public, max-age=3600"
	indexCacheControl = "no-cache"
)

// Resolution は ResolveStaticPath の結果
type Resolution struct {
	Name     string // root内のファイル名
	Fallback bool   // インデックスへのフォールバックか
}

// Site は静的ファイルの配信を行う
type Site struct {
	root     fs.FS
	log      *slog.Logger
	notFound http.Handler
}

// New はSiteを作成する
// notFound はファイルが見つからない場合に呼ばれる（nilなら http.NotFound）
func New(root fs.FS, log *slog.Logger, notFound http.Handler) *Site {
	if log == nil {
		log = slog.Default()
	}
	if notFound == nil {
		notFound = http.HandlerFunc(http.NotFound)
	}
	return &Site{root: root, log: log, notFound: notFound}
}

// ResolveStaticPath はリクエストパスに対応するファイルを決める
// root内に通常ファイルとして存在すればそのファイル、なければインデックス
func (s *Site) ResolveStaticPath(requested string) Resolution {
	return ResolveStaticPath(s.root, requested)
}

// ResolveStaticPath は fsys に対して解決を行う
func ResolveStaticPath(fsys fs.FS, requested string) Resolution {
	name := fileutil.CleanPath(requested)
	if name != "." && fileutil.IsRegularFile(fsys, name) {
		return Resolution{Name: name}
	}
	return Resolution{Name: IndexDocument, Fallback: true}
}

// AssetHandler はアセットプレフィックス配下を配信する
// ファイルがなければフォールバックせず notFound を返す
func (s *Site) AssetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := fileutil.CleanPath(r.URL.Path)
		if !fileutil.IsRegularFile(s.root, name) {
			s.notFound.ServeHTTP(w, r)
			return
		}
		s.serve(w, r, name, assetCacheControl)
	})
}

// SPAHandler はそれ以外のGETを処理する
func (s *Site) SPAHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := s.ResolveStaticPath(r.URL.Path)
		if !res.Fallback {
			s.serve(w, r, res.Name, fileCacheControl)
			return
		}
		if !fileutil.IsRegularFile(s.root, res.Name) {
			s.log.Error("Index document is missing", "name", res.Name)
			s.notFound.ServeHTTP(w, r)
			return
		}
		s.serve(w, r, res.Name, indexCacheControl)
	})
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request, name, cacheControl string) {
	data, err := fs.ReadFile(s.root, name)
	if err != nil {
		s.log.Error("Failed to read static file", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var modTime time.Time
	if info, err := fs.Stat(s.root, name); err == nil {
		modTime = info.ModTime()
	}

	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, name, modTime, bytes.NewReader(data))
}
