package mediastream

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode_Start(t *testing.T) {
	frame := []byte(`{
		"kind": "start",
		"start": {
			"streamId": "MZ1234",
			"externalCallId": "CA5678",
			"tracks": ["inbound"],
			"audioFormat": {"encoding": "g711_ulaw", "sampleRateHz": 8000, "channels": 1}
		}
	}`)

	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Kind != KindStart {
		t.Fatalf("expected start, got %s", ev.Kind)
	}
	if ev.Start.StreamID != "MZ1234" || ev.Start.ExternalCallID != "CA5678" {
		t.Errorf("unexpected start identifiers: %+v", ev.Start)
	}
	if ev.Start.AudioFormat.Encoding != "g711_ulaw" || ev.Start.AudioFormat.SampleRateHz != 8000 {
		t.Errorf("unexpected audio format: %+v", ev.Start.AudioFormat)
	}
}

func TestDecode_Media(t *testing.T) {
	audio := []byte{0x7f, 0x00, 0xff}
	payload := base64.StdEncoding.EncodeToString(audio)
	frame := []byte(`{"kind":"media","media":{"track":"inbound","sequence":3,"timestampMs":120,"payloadBase64":"` + payload + `"}}`)

	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Kind != KindMedia {
		t.Fatalf("expected media, got %s", ev.Kind)
	}
	got, err := ev.Media.AudioPayload()
	if err != nil {
		t.Fatalf("AudioPayload failed: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("payload mismatch: %v", got)
	}
}

func TestDecode_NotDecodable(t *testing.T) {
	frames := [][]byte{
		[]byte(`not json`),
		[]byte(`{"kind":"dial"}`),
		[]byte(`{"kind":"start"}`),
		[]byte(`{"kind":"media"}`),
		[]byte(`{}`),
	}
	for _, frame := range frames {
		if _, err := Decode(frame); !errors.Is(err, ErrNotDecodable) {
			t.Errorf("frame %s: expected ErrNotDecodable, got %v", frame, err)
		}
	}
}

func TestDecode_ConnectedAndStopAndMark(t *testing.T) {
	ev, err := Decode([]byte(`{"kind":"connected","protocol":"Call","version":"1.0.0"}`))
	if err != nil || ev.Kind != KindConnected {
		t.Fatalf("connected: ev=%+v err=%v", ev, err)
	}

	ev, err = Decode([]byte(`{"kind":"stop","stop":{"externalCallId":"CA5678"}}`))
	if err != nil || ev.Stop == nil || ev.Stop.ExternalCallID != "CA5678" {
		t.Fatalf("stop: ev=%+v err=%v", ev, err)
	}

	ev, err = Decode([]byte(`{"kind":"mark","mark":{"name":"chunk-7"}}`))
	if err != nil || ev.Mark == nil || ev.Mark.Name != "chunk-7" {
		t.Fatalf("mark: ev=%+v err=%v", ev, err)
	}
}

func TestEncodeMedia(t *testing.T) {
	raw, err := EncodeMedia("MZ1234", []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("EncodeMedia failed: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if msg["kind"] != "media" || msg["streamId"] != "MZ1234" {
		t.Errorf("unexpected envelope: %v", msg)
	}
	media := msg["media"].(map[string]any)
	if media["payloadBase64"] != base64.StdEncoding.EncodeToString([]byte{0x01, 0x02}) {
		t.Errorf("unexpected payload: %v", media)
	}
}

func TestEncodeMarkAndClear(t *testing.T) {
	raw, err := EncodeMark("MZ1234", "chunk-1")
	if err != nil {
		t.Fatalf("EncodeMark failed: %v", err)
	}
	var mark map[string]any
	if err := json.Unmarshal(raw, &mark); err != nil {
		t.Fatal(err)
	}
	if mark["kind"] != "mark" || mark["mark"].(map[string]any)["name"] != "chunk-1" {
		t.Errorf("unexpected mark message: %v", mark)
	}

	raw, err = EncodeClear("MZ1234")
	if err != nil {
		t.Fatalf("EncodeClear failed: %v", err)
	}
	var clear map[string]any
	if err := json.Unmarshal(raw, &clear); err != nil {
		t.Fatal(err)
	}
	if clear["kind"] != "clear" || clear["streamId"] != "MZ1234" {
		t.Errorf("unexpected clear message: %v", clear)
	}
}
