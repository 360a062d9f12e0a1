package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"RoverBridge/internal/model"
)

// JSONParser implements TelemetryCodec for the robot's JSON status frames.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// EncodeTelemetry encodes a snapshot into one JSON frame.
func (p *JSONParser) EncodeTelemetry(s model.TelemetrySnapshot) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

// DecodeTelemetry decodes one frame. Anything that is not a JSON object
// with well-typed fields is a *model.ParseError.
func (p *JSONParser) DecodeTelemetry(s string) (model.TelemetrySnapshot, error) {
	var v model.TelemetrySnapshot
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return v, &model.ParseError{Input: s, Err: errors.New("frame is not a JSON object")}
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return model.TelemetrySnapshot{}, &model.ParseError{Input: s, Err: err}
	}
	return v, nil
}
