package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const maskedGuess = "[CORRECT]"

// Envelope is the serialized form of an Event.
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  Kind            `json:"eventType"`
	RoomID     string          `json:"roomId,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// PublicPayload is the payload every subscriber may see. The round's word is
// stripped and a correct guess is masked.
func PublicPayload(e Event) any {
	switch d := e.Data.(type) {
	case RoundStartedData:
		return RoundStartedPublic{RoomID: d.RoomID, RoundID: d.RoundID, RoundNo: d.RoundNo, DrawerID: d.DrawerID}
	case GuessSubmittedData:
		if d.IsCorrect {
			d.GuessText = maskedGuess
		}
		return d
	default:
		return e.Data
	}
}

// Encode renders the public envelope of e.
func Encode(e Event) ([]byte, error) {
	return encode(e, PublicPayload(e))
}

// EncodeForDrawer renders the envelope with the unredacted payload. Only the
// round's drawer should receive it.
func EncodeForDrawer(e Event) ([]byte, error) {
	return encode(e, e.Data)
}

func encode(e Event, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind, err)
	}
	return json.Marshal(Envelope{
		EventID:    e.ID,
		EventType:  e.Kind,
		RoomID:     e.RoomID,
		OccurredAt: e.OccurredAt,
		Payload:    raw,
	})
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event type")
	}
	return env, nil
}

// DrawerOnly reports whether e has a payload that differs for the drawer.
func DrawerOnly(e Event) (drawerID string, ok bool) {
	if d, isStart := e.Data.(RoundStartedData); isStart {
		return d.DrawerID, true
	}
	return "", false
}
