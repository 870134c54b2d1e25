package models

import "time"

// Subscription é o registro de créditos da conta: quantos relatórios o
// usuário ainda pode gerar e qual plano está associado.
// Regra: user_id é único, garantindo exatamente 1 registro por usuário.
// Nunca é deletado; no encerramento da conta vira active=false.
type Subscription struct {
	ID     int64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID int64 `gorm:"not null;unique_index" json:"user_id"`

	HasPlan          bool  `gorm:"not null;default:false" json:"has_plan"`
	CreditsRemaining int64 `gorm:"not null;default:0" json:"credits_remaining"`

	// PlanCreditsGranted guarda o que a última compra adicionou, separado de
	// CreditsRemaining, para auditoria da reconciliação.
	PlanCreditsGranted int64 `gorm:"not null;default:0" json:"plan_credits_granted"`

	PlanName         string `gorm:"default:''" json:"plan_name"`
	PreviousPlanName string `gorm:"default:''" json:"previous_plan_name"`
	AutoRenew        bool   `gorm:"not null;default:false" json:"auto_renew"`

	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`

	Active bool `gorm:"not null;default:true" json:"active"`

	// Version cresce a cada mutação; usado como compare-and-swap para evitar
	// lost update entre processos concorrentes.
	Version int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
