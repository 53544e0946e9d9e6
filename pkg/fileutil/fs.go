package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Root は配信元のファイルシステム
// 実ディレクトリと埋め込みファイルシステムを統一的に扱う
type Root struct {
	fs.FS
	basePath string
	embedded bool
}

// BasePath はベースパスを返す（埋め込みの場合は仮想パス）
func (r *Root) BasePath() string {
	return r.basePath
}

// IsEmbedded は埋め込みファイルシステムかどうかを返す
func (r *Root) IsEmbedded() bool {
	return r.embedded
}

// NewRealRoot は実ディレクトリ用のRootを作成する
func NewRealRoot(dir string) (*Root, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("static directory does not exist: %s", dir)
		}
		return nil, fmt.Errorf("failed to access static directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static path is not a directory: %s", dir)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	return &Root{FS: os.DirFS(absPath), basePath: absPath}, nil
}

// NewEmbedRoot は埋め込みファイルシステム用のRootを作成する
// basePath は fsys 内のサブディレクトリ（"." ならそのまま）
func NewEmbedRoot(fsys fs.FS, basePath string) (*Root, error) {
	sub := fsys
	if basePath != "" && basePath != "." {
		var err error
		sub, err = fs.Sub(fsys, basePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded directory %s: %w", basePath, err)
		}
	}
	return &Root{FS: sub, basePath: basePath, embedded: true}, nil
}

// OpenRoot は dir が存在すれば実ディレクトリを、存在しなければ fallback を返す
// fallback が nil の場合は dir のエラーをそのまま返す
func OpenRoot(dir string, fallback fs.FS, fallbackBase string) (*Root, error) {
	root, err := NewRealRoot(dir)
	if err == nil {
		return root, nil
	}
	if fallback == nil {
		return nil, err
	}
	if _, statErr := os.Stat(dir); statErr == nil {
		// 存在するがディレクトリではない場合はフォールバックしない
		return nil, err
	}
	return NewEmbedRoot(fallback, fallbackBase)
}
