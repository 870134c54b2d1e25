package payments

import (
	"context"
	"errors"
)

// ErrChargeDeclined indica recusa da cobrança pelo provedor (cartão negado,
// saldo insuficiente etc). Nesse caso NADA pode ser escrito no ledger.
var ErrChargeDeclined = errors.New("cobrança recusada pelo provedor")

// ChargeRequest descreve uma cobrança de cartão a ser executada ANTES de
// qualquer escrita no registro de créditos.
type ChargeRequest struct {
	PurchaseID      string // chave de idempotência propagada ao provedor
	CustomerID      string
	PaymentMethodID string
	AmountCents     int64
	Currency        string
	Description     string

	// Metadata viaja até o provedor e volta no webhook de confirmação.
	Metadata map[string]string
}

// ChargeResult é a confirmação do provedor.
type ChargeResult struct {
	ProviderChargeID string `json:"provider_charge_id"`
	Status           string `json:"status"`
}

// Card é a projeção local de um instrumento salvo no provedor.
type Card struct {
	PaymentMethodID string `json:"payment_method_id"`
	Brand           string `json:"brand"`
	Last4           string `json:"last4"`
	ExpMonth        int    `json:"exp_month"`
	ExpYear         int    `json:"exp_year"`
}

// Provider abstrai o gateway de cartão. A implementação é escolhida uma vez
// na inicialização via configuração ("stripe" ou "mock").
type Provider interface {
	// EnsureCustomer devolve o ID do cliente no provedor, criando se preciso.
	EnsureCustomer(ctx context.Context, name, email, existingID string) (string, error)

	// Charge executa a cobrança síncrona. Erro => nenhuma compra é aplicada.
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)

	// AttachCard associa um payment method ao cliente e devolve os metadados
	// para a cópia local.
	AttachCard(ctx context.Context, customerID, paymentMethodID string) (Card, error)

	// DetachCard remove o instrumento no provedor.
	DetachCard(ctx context.Context, paymentMethodID string) error
}
