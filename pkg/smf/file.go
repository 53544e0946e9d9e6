// Package smf implements a strict Standard MIDI File (SMF) container reader
// that keeps the original byte stream, so that note events can be rewritten
// in place without re-encoding anything else.
package smf

import (
	"encoding/binary"
)

const (
	headerChunkID = "MThd"
	trackChunkID  = "MTrk"

	chunkHeaderSize = 8
	minHeaderLength = 6

	// maxVarLenBytes はSMFで許される可変長数値の最大バイト数
	maxVarLenBytes = 4
)

// EventKind はイベントの種類を表す
type EventKind uint8

const (
	KindNoteOff EventKind = iota
	KindNoteOn
	KindPolyPressure
	KindControlChange
	KindProgramChange
	KindChannelPressure
	KindPitchBend
	KindSysEx
	KindMeta
)

var eventKindNames = map[EventKind]string{
	KindNoteOff:         "NoteOff",
	KindNoteOn:          "NoteOn",
	KindPolyPressure:    "PolyPressure",
	KindControlChange:   "ControlChange",
	KindProgramChange:   "ProgramChange",
	KindChannelPressure: "ChannelPressure",
	KindPitchBend:       "PitchBend",
	KindSysEx:           "SysEx",
	KindMeta:            "Meta",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsNote はNoteOn/NoteOffかどうかを返す
func (k EventKind) IsNote() bool {
	return k == KindNoteOn || k == KindNoteOff
}

// Event はトラック内の1イベントを表す
// Start..End はデルタタイムを含むイベント全体のバイト範囲
type Event struct {
	Delta    uint32
	Kind     EventKind
	Status   byte // ランニングステータス解決後のステータス
	Running  bool // ステータスバイトが省略されていたか
	Channel  uint8
	Note     uint8 // NoteOn/NoteOff のみ
	Velocity uint8 // NoteOn/NoteOff のみ
	MetaType byte  // Meta のみ
	Start    int
	End      int

	noteAt int
}

// Track はMTrkチャンク1つ分のイベント列
type Track struct {
	Offset int // チャンクヘッダの位置
	Length int // チャンクデータ長
	Events []Event
}

// File は解析済みのSMF
// data は入力のコピーで、ノート書き換えはこのバッファに直接反映される
type File struct {
	Format     uint16
	TrackCount uint16
	Division   uint16
	Tracks     []Track

	data []byte
}

// Bytes はシリアライズ済みのSMFを返す
func (f *File) Bytes() []byte {
	return f.data
}

// Raw はイベントの元バイト列（デルタタイム込み）を返す
func (f *File) Raw(e Event) []byte {
	return f.data[e.Start:e.End]
}

// SetNote は指定イベントのノート番号を書き換える
func (f *File) SetNote(track, index int, note uint8) {
	e := &f.Tracks[track].Events[index]
	if !e.Kind.IsNote() {
		return
	}
	e.Note = note
	f.data[e.noteAt] = note
}

// Parse はSMFのバイト列を解析する
// 入力はコピーされるため、呼び出し元のスライスは変更されない
func Parse(input []byte) (*File, error) {
	data := make([]byte, len(input))
	copy(data, input)

	f := &File{data: data}
	offset, err := f.readHeader()
	if err != nil {
		return nil, err
	}

	f.Tracks = make([]Track, 0, f.TrackCount)
	for len(f.Tracks) < int(f.TrackCount) {
		if offset >= len(data) {
			return nil, malformed(-1, offset, "expected %d tracks, found %d", f.TrackCount, len(f.Tracks))
		}
		if offset+chunkHeaderSize > len(data) {
			return nil, malformed(-1, offset, "truncated chunk header")
		}

		chunkID := string(data[offset : offset+4])
		declared := binary.BigEndian.Uint32(data[offset+4 : offset+8])
		body := offset + chunkHeaderSize
		if uint64(declared) > uint64(len(data)-body) {
			return nil, malformed(len(f.Tracks), offset, "truncated %q chunk: declares %d bytes, %d available", chunkID, declared, len(data)-body)
		}
		length := int(declared)

		if chunkID == trackChunkID {
			track, err := f.readTrack(len(f.Tracks), body, body+length)
			if err != nil {
				return nil, err
			}
			track.Offset = offset
			track.Length = length
			f.Tracks = append(f.Tracks, track)
		}
		// MTrk以外のチャンクは読み飛ばす（バイト列はそのまま残る）
		offset = body + length
	}

	return f, nil
}

// readHeader はMThdチャンクを読み、最初のトラックチャンクの位置を返す
func (f *File) readHeader() (int, error) {
	b := f.data
	if len(b) < chunkHeaderSize+minHeaderLength {
		return 0, malformed(-1, 0, "truncated header: %d bytes", len(b))
	}
	if string(b[0:4]) != headerChunkID {
		return 0, malformed(-1, 0, "invalid header magic %q, expected %q", printable(b[0:4]), headerChunkID)
	}

	declared := binary.BigEndian.Uint32(b[4:8])
	if declared < minHeaderLength {
		return 0, malformed(-1, 4, "invalid header length %d", declared)
	}
	if uint64(declared) > uint64(len(b)-chunkHeaderSize) {
		return 0, malformed(-1, 4, "truncated header: declares %d bytes", declared)
	}
	length := int(declared)

	f.Format = binary.BigEndian.Uint16(b[8:10])
	f.TrackCount = binary.BigEndian.Uint16(b[10:12])
	f.Division = binary.BigEndian.Uint16(b[12:14])

	if f.Format > 2 {
		return 0, malformed(-1, 8, "unsupported format %d", f.Format)
	}
	if f.Format == 0 && f.TrackCount != 1 {
		return 0, malformed(-1, 10, "format 0 requires exactly one track, header declares %d", f.TrackCount)
	}

	return chunkHeaderSize + length, nil
}

// readTrack はトラックチャンクのイベント列を読む
func (f *File) readTrack(index, pos, end int) (Track, error) {
	b := f.data
	track := Track{}
	var lastStatus byte

	for pos < end {
		start := pos

		delta, n, ok := readVarLen(b[pos:end])
		if !ok {
			return Track{}, malformed(index, pos, "invalid variable-length delta time")
		}
		pos += n
		if pos >= end {
			return Track{}, malformed(index, start, "event truncated after delta time")
		}

		ev := Event{Delta: delta, Start: start}
		status := b[pos]

		// ランニングステータス
		if status < 0x80 {
			if lastStatus == 0 {
				return Track{}, malformed(index, pos, "data byte 0x%02X without running status", status)
			}
			status = lastStatus
			ev.Running = true
		} else {
			pos++
			// SysEx/メタイベントはランニングステータスを解除する
			if status < 0xF0 {
				lastStatus = status
			} else {
				lastStatus = 0
			}
		}
		ev.Status = status

		switch {
		case status == 0xFF:
			if pos >= end {
				return Track{}, malformed(index, pos, "meta event truncated")
			}
			ev.Kind = KindMeta
			ev.MetaType = b[pos]
			pos++
			length, n, ok := readVarLen(b[pos:end])
			if !ok {
				return Track{}, malformed(index, pos, "invalid variable-length meta length")
			}
			pos += n
			if int(length) > end-pos {
				return Track{}, malformed(index, start, "meta event 0x%02X overruns track chunk", ev.MetaType)
			}
			pos += int(length)

		case status == 0xF0 || status == 0xF7:
			ev.Kind = KindSysEx
			length, n, ok := readVarLen(b[pos:end])
			if !ok {
				return Track{}, malformed(index, pos, "invalid variable-length sysex length")
			}
			pos += n
			if int(length) > end-pos {
				return Track{}, malformed(index, start, "sysex event overruns track chunk")
			}
			pos += int(length)

		case status >= 0xF0:
			return Track{}, malformed(index, pos-1, "unexpected system message 0x%02X in track", status)

		default:
			ev.Kind, ev.Channel = channelKind(status)
			size := channelDataSize(status)
			if size > end-pos {
				return Track{}, malformed(index, start, "%s event truncated", ev.Kind)
			}
			for i := 0; i < size; i++ {
				if b[pos+i] >= 0x80 {
					return Track{}, malformed(index, pos+i, "%s data byte 0x%02X out of range", ev.Kind, b[pos+i])
				}
			}
			if ev.Kind.IsNote() {
				ev.noteAt = pos
				ev.Note = b[pos]
				ev.Velocity = b[pos+1]
			}
			pos += size
		}

		ev.End = pos
		track.Events = append(track.Events, ev)
	}

	return track, nil
}

func channelKind(status byte) (EventKind, uint8) {
	channel := status & 0x0F
	switch status & 0xF0 {
	case 0x80:
		return KindNoteOff, channel
	case 0x90:
		return KindNoteOn, channel
	case 0xA0:
		return KindPolyPressure, channel
	case 0xB0:
		return KindControlChange, channel
	case 0xC0:
		return KindProgramChange, channel
	case 0xD0:
		return KindChannelPressure, channel
	default:
		return KindPitchBend, channel
	}
}

// channelDataSize はチャンネルメッセージのデータバイト数を返す
func channelDataSize(status byte) int {
	if status >= 0xC0 && status < 0xE0 {
		return 1
	}
	return 2
}

// readVarLen は可変長数値を読む
// 4バイトを超える場合やデータ末尾で途切れた場合は ok=false
func readVarLen(data []byte) (value uint32, n int, ok bool) {
	for i := 0; i < len(data) && i < maxVarLenBytes; i++ {
		value = value<<7 | uint32(data[i]&0x7F)
		if data[i]&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}

// printable はエラーメッセージ用にASCII以外を'.'に置き換える
func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 0x20 || c > 0x7E {
			c = '.'
		}
		out[i] = c
	}
	return string(out)
}
