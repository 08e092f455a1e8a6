package legacyipc

import (
	"encoding/json"
	"testing"
)

func TestJSONCodec_RequestRoundTrip(t *testing.T) {
	codec := JSONCodec{}

	payloads := []RequestPayload{
		{BeatmapFile: "/songs/map.osu", RulesetID: 0, Mods: 0},
		{BeatmapFile: `C:\osu!\Songs\a & b\map.osu`, RulesetID: 1, Mods: 64},
		{BeatmapFile: "/songs/日本語.osu", RulesetID: 2, Mods: 1<<32 - 1},
		{BeatmapFile: "/songs/mania.osu", RulesetID: 3, Mods: 16},
	}

	for _, want := range payloads {
		data, err := codec.EncodeRequest(want)
		if err != nil {
			t.Fatalf("EncodeRequest failed: %v", err)
		}
		got, err := codec.DecodeRequest(data)
		if err != nil {
			t.Fatalf("DecodeRequest(%s) failed: %v", data, err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestJSONCodec_DecodeRequest_PeerMessage(t *testing.T) {
	data := []byte(`{"Type":"System.Object","Value":{"MessageType":"LegacyIpcDifficultyCalculationRequest",` +
		`"MessageData":{"BeatmapFile":"/tmp/a.osu","RulesetId":3,"Mods":72}}}`)

	got, err := JSONCodec{}.DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}

	want := RequestPayload{BeatmapFile: "/tmp/a.osu", RulesetID: 3, Mods: 72}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestJSONCodec_DecodeRequest_TagValuesNotCompared(t *testing.T) {
	data := []byte(`{"Type":"Other","Value":{"MessageType":"","MessageData":{"BeatmapFile":"a.osu","RulesetId":0,"Mods":0},"Extra":1}}`)

	if _, err := (JSONCodec{}).DecodeRequest(data); err != nil {
		t.Errorf("DecodeRequest failed: %v", err)
	}
}

// requestWith wraps messageData in an envelope with valid tags.
func requestWith(messageData string) string {
	return `{"Type":"System.Object","Value":{"MessageType":"LegacyIpcDifficultyCalculationRequest","MessageData":` +
		messageData + `}}`
}

func TestJSONCodec_DecodeRequest_Errors(t *testing.T) {
	schema := func(err error) bool { return IsDecodeError(err, SchemaMismatch) }

	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"invalid utf8", "{\"Type\":\"\xff\xfe\"}", func(err error) bool { return IsDecodeError(err, InvalidUTF8) }},
		{"not json", `{"Type":`, func(err error) bool { return IsDecodeError(err, InvalidJSON) }},
		{"trailing garbage", `{} x`, func(err error) bool { return IsDecodeError(err, InvalidJSON) }},
		{"nul padding", "{}\x00\x00", func(err error) bool { return IsFramingError(err, ShortBody) }},
		{"array", `[]`, schema},
		{"missing value", `{"Type":"System.Object"}`, schema},
		{"missing tags", `{"Value":{"MessageData":{"BeatmapFile":"a.osu","RulesetId":0,"Mods":0}}}`, schema},
		{"type not a string", `{"Type":42,"Value":{"MessageType":"LegacyIpcDifficultyCalculationRequest",` +
			`"MessageData":{"BeatmapFile":"a.osu","RulesetId":0,"Mods":0}}}`, schema},
		{"message type not a string", `{"Type":"System.Object","Value":{"MessageType":[1],` +
			`"MessageData":{"BeatmapFile":"a.osu","RulesetId":0,"Mods":0}}}`, schema},
		{"missing message type", `{"Type":"System.Object","Value":{` +
			`"MessageData":{"BeatmapFile":"a.osu","RulesetId":0,"Mods":0}}}`, schema},
		{"null type", `{"Type":null,"Value":{"MessageType":"LegacyIpcDifficultyCalculationRequest",` +
			`"MessageData":{"BeatmapFile":"a.osu","RulesetId":0,"Mods":0}}}`, schema},
		{"null message data", requestWith(`null`), schema},
		{"lowercase keys", `{"type":"System.Object","value":{"messageType":"LegacyIpcDifficultyCalculationRequest",` +
			`"messageData":{"beatmapFile":"a","rulesetId":0,"mods":0}}}`, schema},
		{"lowercase data keys", requestWith(`{"beatmapFile":"a","rulesetId":0,"mods":0}`), schema},
		{"missing mods", requestWith(`{"BeatmapFile":"a","RulesetId":0}`), schema},
		{"ruleset out of range", requestWith(`{"BeatmapFile":"a","RulesetId":256,"Mods":0}`), schema},
		{"negative mods", requestWith(`{"BeatmapFile":"a","RulesetId":0,"Mods":-1}`), schema},
		{"path not a string", requestWith(`{"BeatmapFile":1,"RulesetId":0,"Mods":0}`), schema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSONCodec{}.DecodeRequest([]byte(tt.input))
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestJSONCodec_EncodeResponse(t *testing.T) {
	data, err := JSONCodec{}.EncodeResponse(ResponsePayload{StarRating: 5.43})
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	want := `{"Type":"System.Object","Value":{"MessageType":"LegacyIpcDifficultyCalculationResponse","MessageData":{"StarRating":5.43}}}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestJSONCodec_EncodeResponse_FieldNames(t *testing.T) {
	data, err := JSONCodec{}.EncodeResponse(ResponsePayload{})
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	var raw struct {
		Value struct {
			MessageData map[string]float64
		}
	}
	if err = json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := raw.Value.MessageData["StarRating"]; !ok || len(raw.Value.MessageData) != 1 {
		t.Errorf("unexpected message data %v", raw.Value.MessageData)
	}
}

func TestJSONCodec_DecodeResponse(t *testing.T) {
	codec := JSONCodec{}

	data, _ := codec.EncodeResponse(ResponsePayload{StarRating: 7.25})
	got, err := codec.DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if got.StarRating != 7.25 {
		t.Errorf("StarRating = %v, want 7.25", got.StarRating)
	}

	request, _ := codec.EncodeRequest(RequestPayload{BeatmapFile: "a"})
	if _, err = codec.DecodeResponse(request); !IsDecodeError(err, SchemaMismatch) {
		t.Errorf("expected SchemaMismatch for a request envelope, got %v", err)
	}
}
