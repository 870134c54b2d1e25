package payments

import (
	"context"
	"log"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/customer"
	"github.com/stripe/stripe-go/v78/paymentintent"
	"github.com/stripe/stripe-go/v78/paymentmethod"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeProvider cobra cartões via Stripe PaymentIntents.
type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (p *StripeProvider) EnsureCustomer(ctx context.Context, name, email, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (p *StripeProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "brl"
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Description:   stripe.String(req.Description),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Context = ctx
	// Propaga a chave de idempotência: retry de rede não cobra duas vezes.
	params.SetIdempotencyKey(req.PurchaseID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Type == stripe.ErrorTypeCard {
			log.Printf("stripe: cartão recusado purchase_id=%s code=%s", req.PurchaseID, stripeErr.Code)
			return ChargeResult{}, ErrChargeDeclined
		}
		return ChargeResult{}, err
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		log.Printf("stripe: payment intent não concluído purchase_id=%s status=%s", req.PurchaseID, pi.Status)
		return ChargeResult{}, ErrChargeDeclined
	}
	return ChargeResult{ProviderChargeID: pi.ID, Status: string(pi.Status)}, nil
}

func (p *StripeProvider) AttachCard(ctx context.Context, customerID, paymentMethodID string) (Card, error) {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	pm, err := paymentmethod.Attach(paymentMethodID, params)
	if err != nil {
		return Card{}, err
	}
	card := Card{PaymentMethodID: pm.ID}
	if pm.Card != nil {
		card.Brand = string(pm.Card.Brand)
		card.Last4 = pm.Card.Last4
		card.ExpMonth = int(pm.Card.ExpMonth)
		card.ExpYear = int(pm.Card.ExpYear)
	}
	return card, nil
}

func (p *StripeProvider) DetachCard(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	_, err := paymentmethod.Detach(paymentMethodID, params)
	return err
}

// VerifyWebhook valida a assinatura do evento recebido no endpoint de
// webhook e devolve o evento decodificado.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, p.webhookSecret)
}
