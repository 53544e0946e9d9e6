package server

import (
	"mime"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// DefaultFilename はファイル名が得られない場合に使う名前
const DefaultFilename = "upload.mid"

// ProcessedPrefix は返却ファイル名の接頭辞
const ProcessedPrefix = "processed_"

// uploadFilename はクライアントが送ったファイル名からベース名を取り出す
// UTF-8でない名前はShift-JISとして解釈する
func uploadFilename(raw string) string {
	name := raw
	if !utf8.ValidString(name) {
		decoded, _, err := transform.String(japanese.ShiftJIS.NewDecoder(), name)
		if err == nil && utf8.ValidString(decoded) {
			name = decoded
		} else {
			name = strings.ToValidUTF8(name, "")
		}
	}

	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == "/" || name == ".." {
		return DefaultFilename
	}
	return name
}

// contentDisposition は attachment のヘッダ値を作る
// 非ASCIIの名前は mime.FormatMediaType がRFC 2231形式にする
func contentDisposition(filename string) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if v == "" {
		return mime.FormatMediaType("attachment", map[string]string{"filename": ProcessedPrefix + DefaultFilename})
	}
	return v
}
