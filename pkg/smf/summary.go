package smf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
	gosmf "gitlab.com/gomidi/midi/v2/smf"
)

// Summary は処理済みSMFの概要（ログ出力用）
type Summary struct {
	Tracks   int
	Events   int
	Notes    int
	LowKey   uint8
	HighKey  uint8
	Duration time.Duration
}

// Summarize は独立したSMFリーダーでファイルを読み直し、概要を返す
// 演奏時間はシーケンサ側が読めない場合 0 のまま返す
func Summarize(data []byte) (Summary, error) {
	mid, err := gosmf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read MIDI file: %w", err)
	}

	s := Summary{Tracks: len(mid.Tracks), LowKey: MaxNote}
	for _, track := range mid.Tracks {
		s.Events += len(track)
		for _, ev := range track {
			var ch, key, vel uint8
			if !ev.Message.GetNoteOn(&ch, &key, &vel) && !ev.Message.GetNoteOff(&ch, &key, &vel) {
				continue
			}
			s.Notes++
			if key < s.LowKey {
				s.LowKey = key
			}
			if key > s.HighKey {
				s.HighKey = key
			}
		}
	}
	if s.Notes == 0 {
		s.LowKey = 0
	}

	s.Duration = playbackLength(data)

	return s, nil
}

// playbackLength はシーケンサで演奏時間を求める
// 読めないファイルでは 0 を返す
func playbackLength(data []byte) (length time.Duration) {
	defer func() {
		if recover() != nil {
			length = 0
		}
	}()
	seq, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	return seq.GetLength()
}
