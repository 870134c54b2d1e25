package models

import "time"

// PaymentCard espelha um instrumento de pagamento salvo no provedor.
// A cópia local permite checar "tem instrumento em arquivo" sem chamar a
// rede (regra da renovação automática para compras via PIX).
type PaymentCard struct {
	ID              int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID          int64      `gorm:"not null;index" json:"user_id"`
	PaymentMethodID string     `gorm:"not null;unique_index" json:"payment_method_id"`
	Brand           string     `gorm:"default:''" json:"brand"`
	Last4           string     `gorm:"default:''" json:"last4"`
	ExpMonth        int        `gorm:"default:0" json:"exp_month"`
	ExpYear         int        `gorm:"default:0" json:"exp_year"`
	IsDefault       bool       `gorm:"not null;default:false" json:"is_default"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}
