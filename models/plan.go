package models

import "time"

// Plan representa um plano comercial que concede um pacote de relatórios.
type Plan struct {
	ID          int64  `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Slug        string `gorm:"not null;unique" json:"slug" form:"slug"` // basic|standard|premium
	Name        string `gorm:"not null;unique" json:"name" form:"name"`
	Description string `gorm:"type:text" json:"description" form:"description"`
	PriceCents  int64  `gorm:"not null;default:0" json:"price_cents" form:"price_cents"`

	// ReportCredits define quantos relatórios o plano concede por período.
	ReportCredits int64 `gorm:"not null;default:0" json:"report_credits" form:"report_credits"`

	// DiscountPercent é informativo, usado na vitrine de planos.
	DiscountPercent int64 `gorm:"not null;default:0" json:"discount_percent" form:"discount_percent"`

	Currency  string     `gorm:"not null;default:'BRL'" json:"currency" form:"currency"`
	Interval  string     `gorm:"not null;default:'monthly'" json:"interval" form:"interval"` // monthly|yearly|one_time
	IsActive  bool       `gorm:"not null;default:true" json:"is_active" form:"is_active"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
