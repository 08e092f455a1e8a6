package legacyipc

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Envelope constants of the legacy difficulty calculation messages.
const (
	EnvelopeType        = "System.Object"
	RequestMessageType  = "LegacyIpcDifficultyCalculationRequest"
	ResponseMessageType = "LegacyIpcDifficultyCalculationResponse"
)

// Envelope is the outer object wrapping every request and response.
type Envelope[T any] struct {
	Type  string           `json:"Type"`
	Value EnvelopeValue[T] `json:"Value"`
}

// EnvelopeValue carries the message type tag and the typed payload.
type EnvelopeValue[T any] struct {
	MessageType string `json:"MessageType"`
	MessageData T      `json:"MessageData"`
}

// RequestPayload asks for the star rating of one beatmap.
type RequestPayload struct {
	BeatmapFile string `json:"BeatmapFile"`
	RulesetID   uint8  `json:"RulesetId"`
	Mods        uint32 `json:"Mods"`
}

// ResponsePayload carries the computed star rating.
type ResponsePayload struct {
	StarRating float64 `json:"StarRating"`
}

// Codec is the interface for turning frame payloads into requests and
// responses into frame payloads.
type Codec interface {
	// DecodeRequest parses one request frame payload.
	DecodeRequest(data []byte) (RequestPayload, error)
	// EncodeResponse serializes a response envelope.
	EncodeResponse(payload ResponsePayload) ([]byte, error)
}

// JSONCodec implements Codec with the legacy JSON envelope. Field names are
// matched case-sensitively.
type JSONCodec struct{}

// DecodeRequest parses data as a request envelope and returns its payload.
func (JSONCodec) DecodeRequest(data []byte) (RequestPayload, error) {
	var payload RequestPayload

	// Padding inside the declared length means the peer's length is wrong.
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return payload, framingError(ShortBody, errors.Errorf("NUL byte at offset %d of %d", i, len(data)))
	}
	if !utf8.Valid(data) {
		return payload, decodeError(InvalidUTF8, nil)
	}
	if !json.Valid(data) {
		var probe any
		return payload, decodeError(InvalidJSON, json.Unmarshal(data, &probe))
	}

	envelope, err := object(data, "envelope")
	if err != nil {
		return payload, err
	}
	var tag string
	if err = unmarshalField(envelope, "Type", &tag); err != nil {
		return payload, err
	}
	rawValue, err := requireField(envelope, "Value")
	if err != nil {
		return payload, err
	}
	value, err := object(rawValue, "Value")
	if err != nil {
		return payload, err
	}
	// Tag values are not compared, only their presence and type.
	if err = unmarshalField(value, "MessageType", &tag); err != nil {
		return payload, err
	}
	rawData, err := requireField(value, "MessageData")
	if err != nil {
		return payload, err
	}
	messageData, err := object(rawData, "MessageData")
	if err != nil {
		return payload, err
	}

	if err = unmarshalField(messageData, "BeatmapFile", &payload.BeatmapFile); err != nil {
		return payload, err
	}
	if err = unmarshalField(messageData, "RulesetId", &payload.RulesetID); err != nil {
		return payload, err
	}
	if err = unmarshalField(messageData, "Mods", &payload.Mods); err != nil {
		return payload, err
	}

	return payload, nil
}

// EncodeResponse wraps payload in the fixed response envelope.
func (JSONCodec) EncodeResponse(payload ResponsePayload) ([]byte, error) {
	return json.Marshal(Envelope[ResponsePayload]{
		Type: EnvelopeType,
		Value: EnvelopeValue[ResponsePayload]{
			MessageType: ResponseMessageType,
			MessageData: payload,
		},
	})
}

// EncodeRequest wraps payload in a request envelope, as the peer does.
func (JSONCodec) EncodeRequest(payload RequestPayload) ([]byte, error) {
	return json.Marshal(Envelope[RequestPayload]{
		Type: EnvelopeType,
		Value: EnvelopeValue[RequestPayload]{
			MessageType: RequestMessageType,
			MessageData: payload,
		},
	})
}

// DecodeResponse parses a response envelope and returns its payload.
func (JSONCodec) DecodeResponse(data []byte) (ResponsePayload, error) {
	var envelope Envelope[ResponsePayload]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ResponsePayload{}, decodeError(InvalidJSON, err)
	}
	if envelope.Value.MessageType != ResponseMessageType {
		return ResponsePayload{}, decodeError(SchemaMismatch,
			errors.Errorf("unexpected message type %q", envelope.Value.MessageType))
	}
	return envelope.Value.MessageData, nil
}

func object(data json.RawMessage, name string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		if err == nil {
			err = errors.New("null")
		}
		return nil, decodeError(SchemaMismatch, errors.Wrapf(err, "%s is not an object", name))
	}
	return obj, nil
}

func requireField(obj map[string]json.RawMessage, key string) (json.RawMessage, error) {
	raw, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, decodeError(SchemaMismatch, errors.Errorf("missing field %q", key))
	}
	return raw, nil
}

func unmarshalField(obj map[string]json.RawMessage, key string, v any) error {
	raw, err := requireField(obj, key)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return decodeError(SchemaMismatch, errors.Wrapf(err, "field %q", key))
	}
	return nil
}
