package smf

import (
	"fmt"
	"strings"
)

// MaxNote はMIDIノート番号の最大値
const MaxNote = 127

// DefaultInterval は半音1つ分の移調量
const DefaultInterval = 1

// Policy は移調後のノート番号が0..127を外れたときの扱い
type Policy int

const (
	// PolicyReject は範囲外になった時点でエラーを返す
	PolicyReject Policy = iota
	// PolicyClamp は0または127に丸める
	PolicyClamp
	// PolicyWrap は128で折り返す
	PolicyWrap
)

var policyNames = map[Policy]string{
	PolicyReject: "reject",
	PolicyClamp:  "clamp",
	PolicyWrap:   "wrap",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy は文字列からPolicyを得る
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return PolicyReject, fmt.Errorf("invalid note overflow policy: %s (must be reject, clamp, or wrap)", s)
}

// ValidateInterval は移調量が -127..127 に収まるか確認する
func ValidateInterval(interval int) error {
	if interval < -MaxNote || interval > MaxNote {
		return fmt.Errorf("transpose interval must be within -%d..%d, got %d", MaxNote, MaxNote, interval)
	}
	return nil
}

// Transposer はNoteOn/NoteOffのノート番号を一定量ずらす
// 状態を持たないため複数のgoroutineから同時に使える
type Transposer struct {
	Interval int
	Policy   Policy
}

// NewTransposer は半音上げ・範囲外拒否のTransposerを作成
func NewTransposer() *Transposer {
	return &Transposer{Interval: DefaultInterval, Policy: PolicyReject}
}

// Transpose は入力を解析し、ノートを移調したSMFを返す
func (t *Transposer) Transpose(data []byte) ([]byte, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := t.Apply(f); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

// Apply は解析済みのFileを書き換える
// PolicyReject でエラーになった場合、Fileは途中まで書き換えられている
func (t *Transposer) Apply(f *File) error {
	if err := ValidateInterval(t.Interval); err != nil {
		return err
	}

	for ti := range f.Tracks {
		events := f.Tracks[ti].Events
		for ei := range events {
			ev := events[ei]
			if !ev.Kind.IsNote() {
				continue
			}
			note, err := t.shift(ev.Note)
			if err != nil {
				return outOfRange(ti, ev.Start, "%s note %d on channel %d cannot be shifted by %+d (event %d)", ev.Kind, ev.Note, ev.Channel, t.Interval, ei)
			}
			f.SetNote(ti, ei, note)
		}
	}
	return nil
}

func (t *Transposer) shift(note uint8) (uint8, error) {
	n := int(note) + t.Interval
	if n >= 0 && n <= MaxNote {
		return uint8(n), nil
	}

	switch t.Policy {
	case PolicyClamp:
		if n < 0 {
			return 0, nil
		}
		return MaxNote, nil
	case PolicyWrap:
		return uint8(((n % 128) + 128) % 128), nil
	default:
		return 0, ErrNoteOutOfRange
	}
}

// Transpose は既定のTransposer（半音上げ、範囲外は拒否）で移調する
func Transpose(data []byte) ([]byte, error) {
	return NewTransposer().Transpose(data)
}
