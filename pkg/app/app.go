package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zurustar/semitone/pkg/cli"
	"github.com/zurustar/semitone/pkg/fileutil"
	"github.com/zurustar/semitone/pkg/logger"
	"github.com/zurustar/semitone/pkg/server"
	"github.com/zurustar/semitone/pkg/smf"
)

// embeddedStaticDir は埋め込みファイルシステム内のSPAディレクトリ
const embeddedStaticDir = "static"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	embedFS fs.FS
}

// New Applicationを作成
// embedFS は静的ディレクトリが存在しない場合に配信するSPA（nil可）
func New(embedFS fs.FS) *Application {
	return &Application{
		embedFS: embedFS,
	}
}

// Run アプリケーションを実行
// SIGINT/SIGTERM を受け取るとグレースフルシャットダウンする
func (app *Application) Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.run(ctx, args)
}

func (app *Application) run(ctx context.Context, args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "version", server.Version)

	// 3. サーバーの構築
	srv, err := app.newServer()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 4. 待ち受け
	if err := srv.Run(ctx); err != nil {
		return err
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel, app.config.LogFormat); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// newServer 設定からHTTPサーバーを組み立てる
func (app *Application) newServer() (*server.Server, error) {
	root, err := app.openStatic()
	if err != nil {
		return nil, err
	}

	policy, err := smf.ParsePolicy(app.config.NoteOverflow)
	if err != nil {
		return nil, err
	}
	transposer := &smf.Transposer{Interval: app.config.Interval, Policy: policy}

	app.log.Info("Transposer configured", "interval", transposer.Interval, "noteOverflow", policy.String())

	opts := server.Options{
		Addr:           app.config.Addr(),
		AssetsPrefix:   app.config.AssetsPrefix,
		MaxUploadBytes: app.config.MaxUploadBytes,
		CORS:           app.config.CORS,
	}
	return server.New(opts, transposer, root, app.log), nil
}

// openStatic SPAの配信元を開く
// 指定ディレクトリがなければ埋め込み版を使う
func (app *Application) openStatic() (*fileutil.Root, error) {
	root, err := fileutil.OpenRoot(app.config.StaticDir, app.embedFS, embeddedStaticDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	if root.IsEmbedded() {
		app.log.Info("Static directory not found, serving embedded files", "dir", app.config.StaticDir)
	} else {
		app.log.Info("Serving static files", "dir", root.BasePath())
	}
	if !fileutil.IsRegularFile(root, "index.html") {
		app.log.Warn("index.html not found in static files, client routes will return 404")
	}
	return root, nil
}
