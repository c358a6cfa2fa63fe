// Package domain defines the core domain models for the chat client.
package domain

// DeliveryState represents the delivery state of a message.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "pending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)

// Resolve moves a pending state to its final outcome.
// Final states never change again, so resolving sent or failed is a no-op.
func (s DeliveryState) Resolve(ok bool) DeliveryState {
	if s != DeliveryPending && s != "" {
		return s
	}
	if ok {
		return DeliverySent
	}
	return DeliveryFailed
}

// IsFinal reports whether the state can no longer change.
func (s DeliveryState) IsFinal() bool {
	return s == DeliverySent || s == DeliveryFailed
}

// MessageType represents the content type of a chat message.
type MessageType string

const (
	MessageTypeText MessageType = "text"
)

// TransactionType represents the kind of a credit transaction.
type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionSpend    TransactionType = "spend"
	TransactionBonus    TransactionType = "bonus"
)

// TransactionStatus represents the status of a credit transaction.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// Label returns the user-facing label of the status.
func (s TransactionStatus) Label() string {
	switch s {
	case TransactionCompleted:
		return "Concluído"
	case TransactionPending:
		return "Pendente"
	case TransactionFailed:
		return "Falhou"
	default:
		return string(s)
	}
}
