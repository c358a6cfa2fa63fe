// Package protocol defines the realtime event protocol between the client and the chat backend.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/guipratiko/front-conexprob/internal/domain"
)

// Events from client to backend
const (
	EventSendMessage = "send-message"
	EventMarkRead    = "mark-read"
	EventTyping      = "typing"
)

// Events from backend to client
const (
	EventReceiveMessage = "receive-message"
	EventMessageSent    = "message-sent"
	EventMessageError   = "message-error"
	EventUserTyping     = "user-typing"
)

// Envelope is the frame carried over the realtime connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ts    int64           `json:"ts"`
}

// NewEnvelope marshals payload into an envelope stamped with the current time.
func NewEnvelope(event string, payload interface{}) (Envelope, error) {
	env := Envelope{
		Event: event,
		Ts:    time.Now().UnixMilli(),
	}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}

// SendMessagePayload is sent to deliver a message to a recipient.
type SendMessagePayload struct {
	RecipientID string             `json:"recipientId"`
	Content     string             `json:"content"`
	Type        domain.MessageType `json:"type"`
}

// MarkReadPayload marks the conversation with a model as read.
type MarkReadPayload struct {
	ModelID string `json:"modelId"`
}

// TypingPayload signals the local user's typing state to a recipient.
type TypingPayload struct {
	RecipientID string `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

// ReceiveMessagePayload carries a message sent by another user.
type ReceiveMessagePayload struct {
	Message  domain.Message `json:"message"`
	SenderID string         `json:"senderId"`
}

// MessageSentPayload confirms a message accepted by the backend.
type MessageSentPayload struct {
	Message domain.Message `json:"message"`
}

// MessageErrorPayload reports a rejected send.
// The credit fields are only set when InsufficientCredits is true.
type MessageErrorPayload struct {
	Message             string `json:"message"`
	InsufficientCredits bool   `json:"insufficientCredits,omitempty"`
	CurrentCredits      int    `json:"currentCredits,omitempty"`
	RequiredCredits     int    `json:"requiredCredits,omitempty"`
	ModelName           string `json:"modelName,omitempty"`
}

// Shortfall converts the payload into a notice. It returns false when the
// error is not a credit shortfall.
func (p MessageErrorPayload) Shortfall() (domain.CreditShortfallNotice, bool) {
	if !p.InsufficientCredits {
		return domain.CreditShortfallNotice{}, false
	}
	return domain.CreditShortfallNotice{
		CurrentCredits:   p.CurrentCredits,
		RequiredCredits:  p.RequiredCredits,
		CounterpartyName: p.ModelName,
	}, true
}

// UserTypingPayload reports another user's typing state.
type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
