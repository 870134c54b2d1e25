package models

import "time"

/************************************************
/**** MARK: PURCHASE STATUS ****/
/************************************************/
const PURCHASE_STATUS_PENDING = "pending"
const PURCHASE_STATUS_SUCCEEDED = "succeeded"
const PURCHASE_STATUS_FAILED = "failed"

/************************************************
/**** MARK: PAYMENT METHODS ****/
/************************************************/
const PAYMENT_METHOD_CARD = "card"
const PAYMENT_METHOD_PIX = "pix"

// Purchase registra um evento de pagamento concluído (ou pendente, no PIX).
// PurchaseID é a chave de idempotência: uma cobrança real gera no máximo um
// registro aplicado; replays são detectados contra esta tabela.
type Purchase struct {
	ID         int64  `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	PurchaseID string `gorm:"not null;unique_index" json:"purchase_id"`
	UserID     int64  `gorm:"not null;index" json:"user_id"`
	PlanID     string `gorm:"not null" json:"plan_id"`
	PlanName   string `gorm:"default:''" json:"plan_name"`

	AmountCents   int64  `gorm:"not null;default:0" json:"amount_cents"`
	PaymentMethod string `gorm:"not null" json:"payment_method"` // card|pix
	Status        string `gorm:"not null;default:'pending';index" json:"status"`

	// Snapshot da reconciliação, para auditoria e replay idempotente.
	CreditsAdded          int64  `gorm:"not null;default:0" json:"credits_added"`
	CreditsBeforePurchase int64  `gorm:"not null;default:0" json:"credits_before_purchase"`
	CreditsAfterPurchase  int64  `gorm:"not null;default:0" json:"credits_after_purchase"`
	PreviousPlanName      string `gorm:"default:''" json:"previous_plan_name"`

	OccurredAt *time.Time `json:"occurred_at"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}
