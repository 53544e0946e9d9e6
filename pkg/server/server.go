// Package server exposes the MIDI transposer and the static single-page
// application over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/zurustar/semitone/pkg/site"
	"github.com/zurustar/semitone/pkg/smf"
)

// Version は /health で返すバージョン（ビルド時に -ldflags で上書き可能）
var Version = "1.1.0"

const (
	DefaultMaxUploadBytes = 50 << 20
	DefaultAssetsPrefix   = "/_next"

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 60 * time.Second
)

// Options はサーバーの設定
type Options struct {
	Addr           string
	AssetsPrefix   string
	MaxUploadBytes int64
	CORS           bool
}

// Transposer はアップロードされたSMFを変換する
type Transposer interface {
	Transpose(data []byte) ([]byte, error)
}

// Server はHTTPサーバー
type Server struct {
	opts       Options
	log        *slog.Logger
	transposer Transposer
	site       *site.Site
	router     *mux.Router
}

// New はServerを作成する
// static はSPAのビルド成果物のルート
func New(opts Options, transposer Transposer, static fs.FS, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if transposer == nil {
		transposer = smf.NewTransposer()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.AssetsPrefix == "" {
		opts.AssetsPrefix = DefaultAssetsPrefix
	}

	s := &Server{
		opts:       opts,
		log:        log,
		transposer: transposer,
		site:       site.New(static, log, notFoundHandler()),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	methods := func(m ...string) []string {
		if s.opts.CORS {
			m = append(m, http.MethodOptions)
		}
		return m
	}

	r.HandleFunc("/process-midi", s.handleProcessMIDI).Methods(methods(http.MethodPost)...)
	r.HandleFunc("/health", s.handleHealth).Methods(methods(http.MethodGet, http.MethodHead)...)
	r.PathPrefix(s.opts.AssetsPrefix + "/").Handler(s.site.AssetHandler()).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/", s.site.SPAHandler()).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/").Handler(s.site.SPAHandler()).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = notFoundHandler()
	r.MethodNotAllowedHandler = methodNotAllowedHandler()

	if s.opts.CORS {
		r.Use(mux.CORSMethodMiddleware(r))
		r.Use(corsMiddleware)
	}

	return r
}

// Handler はミドルウェア込みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return loggingMiddleware(s.log)(recoveryMiddleware(s.log)(s.router))
}

// Run は Options.Addr で待ち受け、ctx がキャンセルされるまで処理を続ける
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln でリクエストを受け付ける
// ctx がキャンセルされるとグレースフルシャットダウンする
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelError),
	}

	s.log.Info("Server listening", "addr", ln.Addr().String(), "version", Version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	<-errCh
	s.log.Info("Server stopped")
	return nil
}
