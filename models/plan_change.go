package models

import "time"

// PlanChange é o histórico de mudanças de plano com a soma de créditos,
// registrado a cada reconciliação de compra que substitui um plano anterior.
type PlanChange struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID        int64      `gorm:"not null;index" json:"user_id"`
	PurchaseID    string     `gorm:"not null;index" json:"purchase_id"`
	PreviousPlan  string     `gorm:"default:''" json:"previous_plan"`
	NewPlan       string     `gorm:"not null" json:"new_plan"`
	CreditsBefore int64      `gorm:"not null;default:0" json:"credits_before"`
	CreditsAdded  int64      `gorm:"not null;default:0" json:"credits_added"`
	CreditsTotal  int64      `gorm:"not null;default:0" json:"credits_total"`
	CreatedAt     *time.Time `json:"created_at"`
}
