package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockProvider aprova tudo e guarda as cobranças em memória.
// Usado em dev e nos testes (config payments.provider = "mock").
type MockProvider struct {
	mu      sync.Mutex
	charges map[string]ChargeResult // por purchase_id

	// DeclineAll força recusa de toda cobrança (simula cartão negado).
	DeclineAll bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{charges: make(map[string]ChargeResult)}
}

func (p *MockProvider) EnsureCustomer(ctx context.Context, name, email, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	return "cus_mock_" + uuid.NewString()[:8], nil
}

func (p *MockProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.DeclineAll {
		return ChargeResult{}, ErrChargeDeclined
	}
	// Idempotente por purchase_id, como o provedor real.
	if prior, ok := p.charges[req.PurchaseID]; ok {
		return prior, nil
	}
	result := ChargeResult{
		ProviderChargeID: "ch_mock_" + uuid.NewString()[:8],
		Status:           "succeeded",
	}
	p.charges[req.PurchaseID] = result
	return result, nil
}

func (p *MockProvider) AttachCard(ctx context.Context, customerID, paymentMethodID string) (Card, error) {
	return Card{
		PaymentMethodID: paymentMethodID,
		Brand:           "visa",
		Last4:           "4242",
		ExpMonth:        12,
		ExpYear:         2030,
	}, nil
}

func (p *MockProvider) DetachCard(ctx context.Context, paymentMethodID string) error {
	return nil
}

// ChargeCount devolve quantas cobranças distintas foram executadas.
func (p *MockProvider) ChargeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.charges)
}
