package workers

import (
	"context"
	"log"
	"strings"
	"time"

	"credanalyzer/ledger"
	"credanalyzer/models"
	"credanalyzer/tools"

	"github.com/jinzhu/gorm"
)

// StartReportProcessor inicia o loop que processa relatórios pendentes com
// ScheduledAt <= now. O crédito já foi debitado na criação; se a geração
// falhar definitivamente, o worker devolve o crédito via ledger.
func StartReportProcessor(db *gorm.DB, ledgerSvc *ledger.Service) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			processDueReports(db, ledgerSvc)
		}
	}()
}

func processDueReports(db *gorm.DB, ledgerSvc *ledger.Service) {
	now := time.Now()

	var reports []models.Report
	if err := db.
		Where("status = ?", models.REPORT_STATUS_PENDING).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at asc, id asc").
		Limit(50).
		Find(&reports).Error; err != nil {
		log.Printf("reports worker: query error: %v", err)
		return
	}

	for _, report := range reports {
		// lock otimista: só processa se conseguir mudar status
		res := db.Model(&models.Report{}).
			Where("id = ? AND status = ?", report.ID, models.REPORT_STATUS_PENDING).
			Update("status", models.REPORT_STATUS_PROCESSING)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}

		go handleReport(db, ledgerSvc, report.ID)
	}
}

func handleReport(db *gorm.DB, ledgerSvc *ledger.Service, reportID int64) {
	var report models.Report
	if err := db.First(&report, reportID).Error; err != nil {
		return
	}
	if report.Status != models.REPORT_STATUS_PROCESSING {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()

	content, err := tools.GenerateCreditReport(ctx, tools.ReportPlanning{
		Segment:       report.Segment,
		Objective:     report.Objective,
		CreditAmount:  report.CreditAmount,
		TimeInCompany: report.TimeInCompany,
		DocumentsJSON: report.DocumentsJSON,
	})
	if err != nil || strings.TrimSpace(content) == "" {
		log.Printf("reports worker: generation error report_id=%d: %v", reportID, err)
		failReport(db, ledgerSvc, report, err)
		return
	}

	t := time.Now()
	_ = db.Model(&models.Report{}).Where("id = ?", report.ID).Updates(map[string]any{
		"status":       models.REPORT_STATUS_DONE,
		"processed_at": &t,
		"content":      content,
	}).Error
}

// failReport marca o relatório como falho e devolve o crédito debitado.
// RefundCredit é idempotente: reprocessar a mesma falha não credita dobrado.
func failReport(db *gorm.DB, ledgerSvc *ledger.Service, report models.Report, cause error) {
	errText := "falha na geração do relatório"
	if cause != nil {
		errText = cause.Error()
	}

	t := time.Now()
	if err := db.Model(&models.Report{}).Where("id = ?", report.ID).Updates(map[string]any{
		"status":       models.REPORT_STATUS_FAILED,
		"processed_at": &t,
		"error_text":   errText,
	}).Error; err != nil {
		log.Printf("reports worker: fail update error report_id=%d: %v", report.ID, err)
		return
	}

	res := ledgerSvc.RefundCredit(context.Background(), report.UserID, report.ReportIdentifier)
	if !res.Success {
		log.Printf("reports worker: refund error report_id=%d kind=%s: %s",
			report.ID, res.Error.Kind, res.Error.Message)
	}
}
