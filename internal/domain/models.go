package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// User is the authenticated account as returned by the backend.
type User struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Role    string `json:"role,omitempty"`
	Credits int    `json:"credits"`
}

// Session is the client-side authentication state.
// BearerToken is non-empty iff the user is authenticated.
type Session struct {
	UserID        string
	DisplayName   string
	CreditBalance int
	BearerToken   string
	User          User
}

// Ref is an identifier that the backend sends either as a plain string or as
// an embedded document carrying an _id.
type Ref string

// UnmarshalJSON accepts "id", {"_id":"id"} and null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var doc struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("ref: %w", err)
	}
	*r = Ref(doc.ID)
	return nil
}

// String returns the identifier.
func (r Ref) String() string { return string(r) }

// ModelProfile is a model (counterparty) listed on the platform.
type ModelProfile struct {
	ID              string   `json:"_id"`
	UserID          Ref      `json:"userId"`
	UserIDString    string   `json:"userIdString,omitempty"`
	Name            string   `json:"name"`
	Age             int      `json:"age,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	CoverPhoto      string   `json:"coverPhoto,omitempty"`
	IsOnline        bool     `json:"isOnline"`
	Rating          float64  `json:"rating,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	TotalChats      int      `json:"totalChats,omitempty"`
	PricePerMessage int      `json:"pricePerMessage,omitempty"`
}

// ChatID returns the user id used to open a chat with the model.
func (m ModelProfile) ChatID() string {
	if m.UserIDString != "" {
		return m.UserIDString
	}
	return m.UserID.String()
}

// Message is a single chat message.
type Message struct {
	ID            string        `json:"_id"`
	SenderID      string        `json:"senderId"`
	RecipientID   string        `json:"recipientId,omitempty"`
	Content       string        `json:"content"`
	Type          MessageType   `json:"type,omitempty"`
	Read          bool          `json:"read,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	DeliveryState DeliveryState `json:"-"`
}

// Conversation is the live state of the chat with one counterparty.
type Conversation struct {
	CounterpartyID string
	Messages       []Message
	TypingUntil    *time.Time
}

// ConversationSummary is an entry of the user's conversation list.
type ConversationSummary struct {
	Model struct {
		ID     string `json:"_id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar,omitempty"`
	} `json:"modelId"`
	LastMessagePreview string    `json:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time `json:"lastMessageAt,omitempty"`
	UnreadCount        int       `json:"unreadCount"`
}

// Transaction is a credit ledger entry.
type Transaction struct {
	ID          string            `json:"_id"`
	Type        TransactionType   `json:"type"`
	Credits     int               `json:"credits"`
	Amount      float64           `json:"amount,omitempty"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID          string  `json:"_id,omitempty"`
	Credits     int     `json:"credits"`
	Bonus       int     `json:"bonus"`
	Price       float64 `json:"price"`
	CheckoutURL string  `json:"link,omitempty"`
	Popular     bool    `json:"popular,omitempty"`
}

// PricePerCredit returns the package price divided by its credits.
func (p CreditPackage) PricePerCredit() float64 {
	if p.Credits == 0 {
		return 0
	}
	return p.Price / float64(p.Credits)
}

// PendingAccount is an account awaiting its password after an external purchase.
type PendingAccount struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Credits int    `json:"credits"`
}

// CreditShortfallNotice describes a send rejected for lack of credits.
type CreditShortfallNotice struct {
	CurrentCredits   int
	RequiredCredits  int
	CounterpartyName string
}
