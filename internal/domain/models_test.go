package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{`"abc"`, "abc"},
		{`{"_id":"def","name":"Ana"}`, "def"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var r Ref
		require.NoError(t, json.Unmarshal([]byte(tt.in), &r), tt.in)
		assert.Equal(t, tt.want, r, tt.in)
	}

	var r Ref
	assert.Error(t, json.Unmarshal([]byte(`42`), &r))
}

func TestModelChatID(t *testing.T) {
	var m ModelProfile
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","userId":{"_id":"u1"}}`), &m))
	assert.Equal(t, "u1", m.ChatID())

	m.UserIDString = "u9"
	assert.Equal(t, "u9", m.ChatID())
}

func TestDeliveryStateResolve(t *testing.T) {
	assert.Equal(t, DeliverySent, DeliveryPending.Resolve(true))
	assert.Equal(t, DeliveryFailed, DeliveryPending.Resolve(false))
	assert.Equal(t, DeliverySent, DeliveryState("").Resolve(true))

	// Final states never change.
	assert.Equal(t, DeliverySent, DeliverySent.Resolve(false))
	assert.Equal(t, DeliveryFailed, DeliveryFailed.Resolve(true))
	assert.True(t, DeliverySent.IsFinal())
	assert.False(t, DeliveryPending.IsFinal())
}

func TestPricePerCredit(t *testing.T) {
	assert.InDelta(t, 0.27, CreditPackage{Credits: 100, Price: 27}.PricePerCredit(), 1e-9)
	assert.Zero(t, CreditPackage{}.PricePerCredit())
}

func TestTransactionStatusLabel(t *testing.T) {
	assert.Equal(t, "Concluído", TransactionCompleted.Label())
	assert.Equal(t, "Pendente", TransactionPending.Label())
	assert.Equal(t, "Falhou", TransactionFailed.Label())
}
