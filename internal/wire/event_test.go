package wire

import (
	"encoding/json"
	"testing"
	"time"
)

func TestInboundEventParsing(t *testing.T) {
	raw := `{
		"conversation_id": "5521999999999@s.whatsapp.net",
		"alt_id": "123456@lid",
		"message_id": "ABCD1234",
		"timestamp": 1756728000,
		"from_self": false,
		"is_group": false,
		"text": "meu cnpj é 11.222.333/0001-81",
		"has_media": false
	}`

	var event InboundEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("failed to parse InboundEvent: %v", err)
	}

	if event.ConversationID != "5521999999999@s.whatsapp.net" {
		t.Errorf("conversation_id = %q", event.ConversationID)
	}
	if event.AltID != "123456@lid" {
		t.Errorf("alt_id = %q", event.AltID)
	}
	if event.MessageID != "ABCD1234" {
		t.Errorf("message_id = %q", event.MessageID)
	}
	want := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	if !event.Time().Equal(want) {
		t.Errorf("timestamp = %v", event.Time())
	}
	if !(InboundEvent{}).Time().IsZero() {
		t.Error("unset timestamp must map to the zero time")
	}
	if event.FromSelf || event.IsGroup || event.HasMedia {
		t.Errorf("flags = %+v", event)
	}
}

func TestSubjectConstants(t *testing.T) {
	if SubjectMessageReceived != "wa.message.received" {
		t.Errorf("SubjectMessageReceived = %q", SubjectMessageReceived)
	}
	if SubjectSendText != "wa.send.text" {
		t.Errorf("SubjectSendText = %q", SubjectSendText)
	}
	if SubjectSendImage != "wa.send.image" {
		t.Errorf("SubjectSendImage = %q", SubjectSendImage)
	}
}
