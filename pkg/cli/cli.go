package cli

import (
	"flag"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/zurustar/semitone/pkg/smf"
)

const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 7860
	DefaultStaticDir    = "static"
	DefaultAssetsPrefix = "/_next"
	DefaultMaxUploadMB  = 50
)

// Config はコマンドライン引数と環境変数から解析された設定を保持する
type Config struct {
	Host           string // 待ち受けアドレス
	Port           int    // 待ち受けポート
	StaticDir      string // SPAのビルド成果物ディレクトリ
	AssetsPrefix   string // 静的アセットのURLプレフィックス
	MaxUploadBytes int64  // アップロードの最大サイズ
	Interval       int    // 移調量（半音単位）
	NoteOverflow   string // ノート番号が範囲外になったときの扱い（reject, clamp, wrap）
	CORS           bool   // 全オリジンからのアクセスを許可
	LogLevel       string // ログレベル（debug, info, warn, error）
	LogFormat      string // ログ形式（text, json）
	ShowHelp       bool   // ヘルプ表示フラグ
}

// Addr は net/http 用の待ち受けアドレスを返す
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// boolFlags は値を取らないフラグ（reorderArgsで使用）
var boolFlags = map[string]bool{
	"-h": true, "--h": true, "-help": true, "--help": true,
	"-cors": true, "--cors": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// コマンドラインで明示されなかった項目は環境変数で上書きできる
func ParseArgs(args []string) (*Config, error) {
	return parseArgs(args, os.Getenv)
}

func parseArgs(args []string, getenv func(string) string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("semitone", flag.ContinueOnError)
	fs.Usage = func() {}

	config := &Config{}

	var maxUploadMB int64
	fs.StringVar(&config.Host, "host", DefaultHost, "待ち受けアドレス")
	fs.IntVar(&config.Port, "port", DefaultPort, "待ち受けポート")
	fs.IntVar(&config.Port, "p", DefaultPort, "待ち受けポート（短縮形）")
	fs.StringVar(&config.StaticDir, "static", DefaultStaticDir, "SPAのビルド成果物ディレクトリ")
	fs.StringVar(&config.AssetsPrefix, "assets-prefix", DefaultAssetsPrefix, "静的アセットのURLプレフィックス")
	fs.Int64Var(&maxUploadMB, "max-upload-mb", DefaultMaxUploadMB, "アップロードの最大サイズ（MB）")
	fs.IntVar(&config.Interval, "interval", smf.DefaultInterval, "移調量（半音）")
	fs.StringVar(&config.NoteOverflow, "note-overflow", "reject", "範囲外ノートの扱い（reject, clamp, wrap）")
	fs.BoolVar(&config.CORS, "cors", false, "全オリジンからのアクセスを許可")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.LogFormat, "log-format", "text", "ログ形式（text, json）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// 環境変数からの設定（コマンドラインフラグが優先）
	envString := func(name, env string, dst *string) {
		if set[name] {
			return
		}
		if v := getenv(env); v != "" {
			*dst = v
		}
	}
	envString("host", "HOST", &config.Host)
	envString("static", "STATIC_DIR", &config.StaticDir)
	envString("note-overflow", "NOTE_OVERFLOW", &config.NoteOverflow)
	envString("log-format", "LOG_FORMAT", &config.LogFormat)
	if !set["log-level"] && !set["l"] {
		if v := getenv("LOG_LEVEL"); v != "" {
			config.LogLevel = strings.ToLower(v)
		}
	}

	if !set["port"] && !set["p"] {
		if v := getenv("PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid PORT: %s", v)
			}
			config.Port = port
		}
	}
	if !set["max-upload-mb"] {
		if v := getenv("MAX_UPLOAD_MB"); v != "" {
			mb, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %s", v)
			}
			maxUploadMB = mb
		}
	}
	if !set["interval"] {
		if v := getenv("TRANSPOSE_INTERVAL"); v != "" {
			interval, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid TRANSPOSE_INTERVAL: %s", v)
			}
			config.Interval = interval
		}
	}
	if !set["cors"] {
		if v := getenv("CORS"); v != "" {
			config.CORS = v == "1" || strings.ToLower(v) == "true"
		}
	}

	// 位置引数（静的ファイルディレクトリ）
	if fs.NArg() > 0 {
		if fs.NArg() > 1 {
			return nil, fmt.Errorf("too many arguments: %v", fs.Args())
		}
		config.StaticDir = fs.Arg(0)
	}

	// 検証
	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("port must be within 0..65535, got %d", config.Port)
	}
	if maxUploadMB <= 0 || maxUploadMB > math.MaxInt64>>20 {
		return nil, fmt.Errorf("max upload size must be within 1..%d MB, got %d", int64(math.MaxInt64>>20), maxUploadMB)
	}
	config.MaxUploadBytes = maxUploadMB << 20

	if err := smf.ValidateInterval(config.Interval); err != nil {
		return nil, err
	}
	if _, err := smf.ParsePolicy(config.NoteOverflow); err != nil {
		return nil, err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}
	if config.LogFormat != "text" && config.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format: %s (must be text or json)", config.LogFormat)
	}

	if !strings.HasPrefix(config.AssetsPrefix, "/") || config.AssetsPrefix == "/" {
		return nil, fmt.Errorf("assets prefix must start with / and name a directory, got %q", config.AssetsPrefix)
	}
	config.AssetsPrefix = strings.TrimSuffix(config.AssetsPrefix, "/")

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// "--port=8080" のような形式は1引数で完結
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			// 次の引数は値
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `semitone - MIDI transposer and SPA host

Usage:
  semitone [options] [static-dir]

Arguments:
  static-dir    SPAのビルド成果物ディレクトリ（省略時: %s）
                存在しない場合は組み込みのページを配信

Options:
  --host <addr>               待ち受けアドレス（デフォルト: %s）
  -p, --port <port>           待ち受けポート（デフォルト: %d）
  --static <dir>              SPAのビルド成果物ディレクトリ
  --assets-prefix <path>      静的アセットのURLプレフィックス（デフォルト: %s）
  --max-upload-mb <mb>        アップロードの最大サイズ（デフォルト: %d）
  --interval <semitones>      移調量（デフォルト: %d）
  --note-overflow <policy>    範囲外ノートの扱い: reject, clamp, wrap（デフォルト: reject）
  --cors                      全オリジンからのアクセスを許可
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-format <format>       ログ形式: text, json（デフォルト: text）
  -h, --help                  このヘルプを表示

Environment Variables:
  HOST, PORT, STATIC_DIR, MAX_UPLOAD_MB, TRANSPOSE_INTERVAL,
  NOTE_OVERFLOW, CORS=1, LOG_LEVEL, LOG_FORMAT

Examples:
  semitone                         ./static を配信、ポート7860で待ち受け
  semitone --port 8080 ./out       ./out を配信
  semitone --note-overflow clamp   127のノートは127のまま
  PORT=9000 semitone               環境変数でポート指定
`, DefaultStaticDir, DefaultHost, DefaultPort, DefaultAssetsPrefix, DefaultMaxUploadMB, smf.DefaultInterval)
}
