package postback

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	ActionStart   = "start"
	ActionRestart = "restart"
)

var ErrMalformed = errors.New("malformed postback payload")

// Action is the decoded intent of a postback. The set of implementations is closed.
type Action interface {
	isAction()
}

// Start moves from the welcome step without recording anything.
type Start struct{}

// Answer records Key=Value (when Value is set) and moves to the payload's Next step.
type Answer struct {
	Key   string
	Value string
}

// Restart resets the session to the root step from anywhere.
type Restart struct{}

// Unknown is a payload that decoded but carries no usable intent.
type Unknown struct {
	Tag string
}

func (Start) isAction()   {}
func (Answer) isAction()  {}
func (Restart) isAction() {}
func (Unknown) isAction() {}

// Payload is a decoded postback.
type Payload struct {
	Raw    string
	Action Action
	Next   string
}

// Fingerprint identifies the exact payload bytes for replay detection.
func (p Payload) Fingerprint() string {
	return Fingerprint(p.Raw)
}

type wirePayload struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
	Next   string `json:"next,omitempty"`
}

// ParsePayload decodes postback data given either as a JSON object or as a
// query string such as "action=area&value=tokyo&next=business_status".
func ParsePayload(raw string) (Payload, error) {
	data := strings.TrimSpace(raw)
	if data == "" {
		return Payload{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var w wirePayload
	if strings.HasPrefix(data, "{") {
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		q, err := url.ParseQuery(data)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		w = wirePayload{Action: q.Get("action"), Value: q.Get("value"), Next: q.Get("next")}
	}

	p := Payload{Raw: raw, Next: strings.TrimSpace(w.Next)}
	tag := strings.TrimSpace(w.Action)
	switch {
	case tag == ActionRestart:
		p.Action = Restart{}
	case tag == "" || p.Next == "":
		p.Action = Unknown{Tag: tag}
	case tag == ActionStart:
		p.Action = Start{}
	default:
		p.Action = Answer{Key: tag, Value: w.Value}
	}
	return p, nil
}

// Encode renders a postback as query-string data for outgoing buttons.
func Encode(action, value, next string) string {
	q := url.Values{}
	q.Set("action", action)
	if value != "" {
		q.Set("value", value)
	}
	if next != "" {
		q.Set("next", next)
	}
	return q.Encode()
}

// Fingerprint hashes raw postback data to a fixed-size identifier.
func Fingerprint(raw string) string {
	sum := blake2b.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
