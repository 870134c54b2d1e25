package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	dbpkg "credanalyzer/db"
	"credanalyzer/ledger"
	"credanalyzer/models"
	"credanalyzer/payments"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutRequest struct {
	PlanSlug        string `json:"plan_slug" form:"plan_slug"`
	PaymentMethodID string `json:"payment_method_id" form:"payment_method_id"`

	// PurchaseID permite retry idempotente do cliente. Vazio gera um novo.
	PurchaseID string `json:"purchase_id" form:"purchase_id"`

	AutoRenew bool `json:"auto_renew" form:"auto_renew"`

	// ResetCredits troca a política aditiva por "zera e concede só o plano".
	ResetCredits bool `json:"reset_credits" form:"reset_credits"`
}

// Checkout cobra o cartão e, SÓ com a cobrança confirmada, aplica a compra
// no registro de créditos. Recusa do provedor não escreve nada.
func Checkout(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PlanSlug == "" || req.PaymentMethodID == "" {
		RespondError(c, "plan_slug e payment_method_id são obrigatórios", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	var plan models.Plan
	if err := db.Where("slug = ? AND is_active = ?", req.PlanSlug, true).First(&plan).Error; err != nil {
		RespondError(c, "plano não encontrado", http.StatusNotFound)
		return
	}

	purchaseID := req.PurchaseID
	if purchaseID == "" {
		purchaseID = "pur_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	ctx := c.Request.Context()
	customerID, err := provider.EnsureCustomer(ctx, user.Name, user.Email, user.StripeCustomerID)
	if err != nil {
		RespondError(c, "erro ao registrar cliente no provedor", http.StatusBadGateway)
		return
	}
	if customerID != user.StripeCustomerID {
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).
			Update("stripe_customer_id", customerID).Error; err != nil {
			RespondError(c, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	// Cobrança primeiro. Nada entra no ledger antes da confirmação.
	charge, err := provider.Charge(ctx, payments.ChargeRequest{
		PurchaseID:      purchaseID,
		CustomerID:      customerID,
		PaymentMethodID: req.PaymentMethodID,
		AmountCents:     plan.PriceCents,
		Currency:        strings.ToLower(plan.Currency),
		Description:     plan.Name,
		Metadata: map[string]string{
			"purchase_id": purchaseID,
			"user_id":     strconv.FormatInt(user.ID, 10),
			"plan_slug":   plan.Slug,
		},
	})
	if err != nil {
		if errors.Is(err, payments.ErrChargeDeclined) {
			RespondError(c, "pagamento recusado", http.StatusPaymentRequired)
			return
		}
		RespondError(c, "erro ao processar pagamento", http.StatusBadGateway)
		return
	}

	res := ledgerSvc.ApplyPurchase(ctx, user.ID, ledger.PurchaseInput{
		PurchaseID:              purchaseID,
		PlanID:                  plan.Slug,
		PlanName:                plan.Name,
		AmountCents:             plan.PriceCents,
		PaymentMethod:           models.PAYMENT_METHOD_CARD,
		Status:                  models.PURCHASE_STATUS_SUCCEEDED,
		CreditsGranted:          plan.ReportCredits,
		PreserveExistingCredits: req.ResetCredits,
		AutoRenew:               req.AutoRenew,
	})
	if !res.Success {
		// Cobrado mas não aplicado: o cliente DEVE repetir com o mesmo
		// purchase_id; o replay reconcilia sem cobrar de novo.
		RespondError(c, res.Error.Message+" (purchase_id="+purchaseID+")", http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchase_id":  purchaseID,
		"charge":       charge,
		"subscription": res.Data,
		"duplicate":    res.Error != nil,
	})
}

type CheckoutPixRequest struct {
	PlanSlug string `json:"plan_slug" form:"plan_slug"`
}

// CheckoutPix gera a cobrança PIX e registra a compra como pendente.
// Créditos só entram quando o pagamento for confirmado.
func CheckoutPix(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CheckoutPixRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PlanSlug == "" {
		RespondError(c, "plan_slug é obrigatório", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	var plan models.Plan
	if err := db.Where("slug = ? AND is_active = ?", req.PlanSlug, true).First(&plan).Error; err != nil {
		RespondError(c, "plano não encontrado", http.StatusNotFound)
		return
	}

	charge := pixGateway.CreateCharge(plan.PriceCents, plan.Name)

	now := time.Now()
	pending := models.Purchase{
		PurchaseID:    charge.PurchaseID,
		UserID:        user.ID,
		PlanID:        plan.Slug,
		PlanName:      plan.Name,
		AmountCents:   plan.PriceCents,
		PaymentMethod: models.PAYMENT_METHOD_PIX,
		Status:        models.PURCHASE_STATUS_PENDING,
		CreditsAdded:  plan.ReportCredits,
		OccurredAt:    &now,
	}
	if err := db.Create(&pending).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchase_id":    charge.PurchaseID,
		"pix_code":       charge.Code,
		"qr_code_base64": charge.QRCodeBase64,
		"amount_cents":   charge.AmountCents,
		"expires_at":     charge.ExpiresAt,
	})
}

// ConfirmPix aplica uma compra PIX pendente depois da confirmação do
// pagamento. Idempotente: confirmar duas vezes não duplica créditos.
func ConfirmPix(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	purchaseID := c.Param("paymentId")
	if purchaseID == "" {
		RespondError(c, "paymentId é obrigatório", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	var pending models.Purchase
	if err := db.Where("purchase_id = ? AND user_id = ?", purchaseID, user.ID).First(&pending).Error; err != nil {
		RespondError(c, "compra não encontrada", http.StatusNotFound)
		return
	}

	res := ledgerSvc.ApplyPurchase(c.Request.Context(), user.ID, ledger.PurchaseInput{
		PurchaseID:     pending.PurchaseID,
		PlanID:         pending.PlanID,
		PlanName:       pending.PlanName,
		AmountCents:    pending.AmountCents,
		PaymentMethod:  models.PAYMENT_METHOD_PIX,
		Status:         models.PURCHASE_STATUS_SUCCEEDED,
		CreditsGranted: pending.CreditsAdded,
	})
	if !res.Success {
		RespondError(c, res.Error.Message, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchase_id":  pending.PurchaseID,
		"subscription": res.Data,
		"duplicate":    res.Error != nil,
	})
}
