// Package smf provides error handling for Standard MIDI File processing.
package smf

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの種類を表す
type ErrorKind string

const (
	// KindMalformed は入力がSMFコンテナとして解析できない場合
	KindMalformed ErrorKind = "MALFORMED_INPUT"
	// KindOutOfRange はノート番号が0..127を超える場合
	KindOutOfRange ErrorKind = "NOTE_OUT_OF_RANGE"
)

// errors.Is で判定するためのセンチネルエラー
var (
	// ErrMalformedInput はSMFとして不正な入力の場合のエラー
	ErrMalformedInput = errors.New("malformed MIDI input")

	// ErrNoteOutOfRange は移調後のノート番号が範囲外になる場合のエラー
	ErrNoteOutOfRange = errors.New("note out of range")
)

// Error はSMF処理で発生したエラーを表す
// Track と Offset は位置が特定できない場合 -1 になる
type Error struct {
	Kind    ErrorKind
	Message string
	Track   int
	Offset  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Track >= 0 && e.Offset >= 0:
		return fmt.Sprintf("%s: track %d at byte %d", e.Message, e.Track, e.Offset)
	case e.Offset >= 0:
		return fmt.Sprintf("%s at byte %d", e.Message, e.Offset)
	default:
		return e.Message
	}
}

// Is は Kind に対応するセンチネルエラーとの比較を可能にする
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformedInput:
		return e.Kind == KindMalformed
	case ErrNoteOutOfRange:
		return e.Kind == KindOutOfRange
	}
	return false
}

func malformed(track, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:    KindMalformed,
		Message: fmt.Sprintf(format, args...),
		Track:   track,
		Offset:  offset,
	}
}

func outOfRange(track, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:    KindOutOfRange,
		Message: fmt.Sprintf(format, args...),
		Track:   track,
		Offset:  offset,
	}
}
