package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	dbpkg "credanalyzer/db"
	"credanalyzer/ledger"
	"credanalyzer/models"
	"credanalyzer/tools"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DocumentInput struct {
	Name string `json:"name"`
	Type string `json:"type"` // extrato|faturamento|dre|serasa|outro
	Size int64  `json:"size"`
}

type CreateReportRequest struct {
	// ReportIdentifier permite retry idempotente do cliente. Vazio gera um.
	ReportIdentifier string `json:"report_identifier" form:"report_identifier"`

	Segment       string          `json:"segment" form:"segment"`
	Objective     string          `json:"objective" form:"objective"`
	CreditAmount  string          `json:"credit_amount" form:"credit_amount"`
	TimeInCompany string          `json:"time_in_company" form:"time_in_company"`
	Documents     []DocumentInput `json:"documents"`
}

// contentHash identifica o conteúdo da solicitação: mesma conta + mesmo
// conteúdo dentro da janela de dedupe conta como um único consumo.
func (req CreateReportRequest) contentHash(userID int64) string {
	parts := []string{
		strconv.FormatInt(userID, 10),
		req.Segment,
		req.Objective,
		req.CreditAmount,
		req.TimeInCompany,
	}
	for _, doc := range req.Documents {
		parts = append(parts, doc.Name, doc.Type, strconv.FormatInt(doc.Size, 10))
	}
	return tools.EncryptTextSHA512(strings.Join(parts, "|"))
}

// CreateReport debita 1 crédito e agenda a geração do relatório.
// Sem créditos: 402 com needs_upgrade, nada é gravado.
func CreateReport(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateReportRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Segment == "" || req.Objective == "" {
		RespondError(c, "segment e objective são obrigatórios", http.StatusBadRequest)
		return
	}

	identifier := req.ReportIdentifier
	if identifier == "" {
		identifier = "rep_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	hash := req.contentHash(user.ID)

	res := ledgerSvc.ConsumeCredit(c.Request.Context(), user.ID, identifier, hash)
	if !res.Success {
		if res.Error.Kind == ledger.KIND_INSUFFICIENT_CREDITS {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":         res.Error.Message,
				"kind":          res.Error.Kind,
				"needs_upgrade": true,
			})
			return
		}
		RespondError(c, res.Error.Message, http.StatusInternalServerError)
		return
	}
	outcome := res.Data.(ledger.ConsumeOutcome)

	db := dbpkg.DBInstance(c)

	// Replay: devolve o relatório já criado para este identificador.
	if outcome.Duplicate {
		var existing models.Report
		err := db.Where("report_identifier = ? AND user_id = ?", identifier, user.ID).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"report":            existing,
				"credits_remaining": outcome.CreditsRemaining,
				"duplicate":         true,
			})
			return
		}
		// Crédito debitado mas relatório nunca gravado (falha entre os dois
		// passos no request original): segue e grava agora.
	}

	docsJSON := ""
	if len(req.Documents) > 0 {
		b, err := json.Marshal(req.Documents)
		if err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}
		docsJSON = string(b)
	}

	now := time.Now()
	report := models.Report{
		UserID:           user.ID,
		ReportIdentifier: identifier,
		Segment:          req.Segment,
		Objective:        req.Objective,
		CreditAmount:     req.CreditAmount,
		TimeInCompany:    req.TimeInCompany,
		DocumentsJSON:    docsJSON,
		ContentHash:      hash,
		Status:           models.REPORT_STATUS_PENDING,
		ScheduledAt:      &now,
	}
	if err := db.Create(&report).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":            report,
		"credits_remaining": outcome.CreditsRemaining,
		"duplicate":         outcome.Duplicate,
	})
}

// GetReports lista os relatórios do usuário logado, mais recentes primeiro.
func GetReports(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	db := dbpkg.DBInstance(c)
	var reports []models.Report
	if err := db.Where("user_id = ?", user.ID).Order("id desc").Find(&reports).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, reports)
}

func GetReport(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	var report models.Report
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&report).Error; err != nil {
		RespondError(c, "relatório não encontrado", http.StatusNotFound)
		return
	}
	RespondSuccess(c, report)
}
