package smf

import (
	"encoding/binary"
)

// testEvent はテスト用SMFを組み立てるためのイベント
type testEvent struct {
	delta uint32
	data  []byte // ステータスバイトを含む（ランニングステータスなら省略）
}

func noteOn(delta uint32, ch, note, vel byte) testEvent {
	return testEvent{delta: delta, data: []byte{0x90 | ch, note, vel}}
}

func noteOff(delta uint32, ch, note, vel byte) testEvent {
	return testEvent{delta: delta, data: []byte{0x80 | ch, note, vel}}
}

func tempo(delta uint32, microsPerBeat int) testEvent {
	return testEvent{delta: delta, data: []byte{0xFF, 0x51, 0x03,
		byte(microsPerBeat >> 16), byte(microsPerBeat >> 8), byte(microsPerBeat)}}
}

func endOfTrack(delta uint32) testEvent {
	return testEvent{delta: delta, data: []byte{0xFF, 0x2F, 0x00}}
}

func appendVarLen(b []byte, v uint32) []byte {
	var tmp [4]byte
	i := 3
	tmp[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
	}
	return append(b, tmp[i:]...)
}

func buildTrack(events ...testEvent) []byte {
	var body []byte
	for _, ev := range events {
		body = appendVarLen(body, ev.delta)
		body = append(body, ev.data...)
	}
	return chunk("MTrk", body)
}

func chunk(id string, body []byte) []byte {
	out := make([]byte, 0, 8+len(body))
	out = append(out, id...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(body)))
	return append(out, body...)
}

func buildSMF(format, division uint16, tracks ...[]byte) []byte {
	header := make([]byte, 0, 6)
	header = binary.BigEndian.AppendUint16(header, format)
	header = binary.BigEndian.AppendUint16(header, uint16(len(tracks)))
	header = binary.BigEndian.AppendUint16(header, division)
	out := chunk("MThd", header)
	for _, tr := range tracks {
		out = append(out, tr...)
	}
	return out
}

// exampleFile は NoteOn(60) → NoteOff(60, delta 480) の1トラックSMF
func exampleFile() []byte {
	return buildSMF(0, 480, buildTrack(
		noteOn(0, 0, 60, 64),
		noteOff(480, 0, 60, 0),
		endOfTrack(0),
	))
}

// declareTracks はヘッダのトラック数を書き換える
func declareTracks(data []byte, n uint16) []byte {
	binary.BigEndian.PutUint16(data[10:12], n)
	return data
}
