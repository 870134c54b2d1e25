package models

import "time"

/************************************************
/**** MARK: REPORT STATUS ****/
/************************************************/
const REPORT_STATUS_PENDING = "pending"
const REPORT_STATUS_PROCESSING = "processing"
const REPORT_STATUS_DONE = "done"
const REPORT_STATUS_FAILED = "failed"

// Report representa uma solicitação de análise de crédito e o relatório
// markdown resultante. Entra como "pending" e é processado pelo worker.
type Report struct {
	ID               int64  `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID           int64  `gorm:"not null;index" json:"user_id"`
	ReportIdentifier string `gorm:"not null;unique_index" json:"report_identifier"`

	// Planejamento inicial informado pelo usuário.
	Segment       string `gorm:"default:''" json:"segment" form:"segment"`
	Objective     string `gorm:"default:''" json:"objective" form:"objective"`
	CreditAmount  string `gorm:"default:''" json:"credit_amount" form:"credit_amount"`
	TimeInCompany string `gorm:"default:''" json:"time_in_company" form:"time_in_company"`

	// DocumentsJSON guarda o manifesto dos documentos enviados (nome/tipo/tamanho).
	DocumentsJSON string `gorm:"type:text" json:"documents_json"`

	Content     string     `gorm:"type:text" json:"content"` // relatório em markdown
	ContentHash string     `gorm:"default:'';index" json:"-"`
	Status      string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	ErrorText   string     `gorm:"type:text" json:"error_text,omitempty"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// ReportEvent é o marcador durável de consumo de crédito.
// A unicidade de (user_id, report_identifier) garante no máximo um decremento
// por solicitação, mesmo sob retry de rede.
type ReportEvent struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID           int64      `gorm:"not null;unique_index:ux_report_events_user_identifier" json:"user_id"`
	ReportIdentifier string     `gorm:"not null;unique_index:ux_report_events_user_identifier" json:"report_identifier"`
	ContentHash      string     `gorm:"default:'';index" json:"content_hash"`
	CreditsAfter     int64      `gorm:"not null;default:0" json:"credits_after"`
	CreatedAt        *time.Time `gorm:"index" json:"created_at"`
}
