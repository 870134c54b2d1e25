package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixChargeBRCode(t *testing.T) {
	g := NewPixGateway("financeiro@credanalyzer.com.br")
	charge := g.CreateCharge(3500, "Plano Básico")

	assert.True(t, strings.HasPrefix(charge.PurchaseID, "pix_"))
	assert.Equal(t, int64(3500), charge.AmountCents)
	assert.NotEmpty(t, charge.QRCodeBase64)
	assert.False(t, charge.ExpiresAt.IsZero())

	// Payload EMV: começa com o format indicator e carrega chave e valor.
	assert.True(t, strings.HasPrefix(charge.Code, "000201"))
	assert.Contains(t, charge.Code, "br.gov.bcb.pix")
	assert.Contains(t, charge.Code, "financeiro@credanalyzer.com.br")
	assert.Contains(t, charge.Code, "35.00")
	// CRC de 4 dígitos hex no final.
	assert.Contains(t, charge.Code, "6304")
	assert.Len(t, charge.Code[strings.LastIndex(charge.Code, "6304")+4:], 4)
}

func TestPixChargeDistinctIDs(t *testing.T) {
	g := NewPixGateway("chave-pix")
	a := g.CreateCharge(5500, "")
	b := g.CreateCharge(5500, "")
	assert.NotEqual(t, a.PurchaseID, b.PurchaseID)
}

func TestMockProviderIdempotentCharge(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	req := ChargeRequest{PurchaseID: "pur_1", CustomerID: "cus_1", AmountCents: 3500}
	first, err := p.Charge(ctx, req)
	require.NoError(t, err)

	second, err := p.Charge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ProviderChargeID, second.ProviderChargeID)
	assert.Equal(t, 1, p.ChargeCount())
}

func TestMockProviderDecline(t *testing.T) {
	p := NewMockProvider()
	p.DeclineAll = true

	_, err := p.Charge(context.Background(), ChargeRequest{PurchaseID: "pur_1"})
	require.ErrorIs(t, err, ErrChargeDeclined)
	assert.Equal(t, 0, p.ChargeCount())
}
