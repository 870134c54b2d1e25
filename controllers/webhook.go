package controllers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	dbpkg "credanalyzer/db"
	"credanalyzer/ledger"
	"credanalyzer/models"
	"credanalyzer/payments"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
)

// StripeWebhook recebe confirmações assíncronas do provedor.
// ApplyPurchase é idempotente, então o webhook pode chegar depois (ou
// junto) da resposta síncrona do checkout sem duplicar créditos.
func StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		RespondError(c, "erro ao ler payload", http.StatusBadRequest)
		return
	}

	stripeProvider, ok := provider.(*payments.StripeProvider)
	if !ok {
		// Provider mock: webhook não faz sentido nesse modo.
		RespondError(c, "webhook desabilitado", http.StatusNotFound)
		return
	}

	event, err := stripeProvider.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		RespondError(c, "assinatura inválida", http.StatusBadRequest)
		return
	}

	if event.Type != "payment_intent.succeeded" {
		c.JSON(http.StatusOK, gin.H{"ignored": string(event.Type)})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		RespondError(c, "payload inválido", http.StatusBadRequest)
		return
	}

	purchaseID := intent.Metadata["purchase_id"]
	planSlug := intent.Metadata["plan_slug"]
	userID, _ := strconv.ParseInt(intent.Metadata["user_id"], 10, 64)
	if purchaseID == "" || planSlug == "" || userID <= 0 {
		log.Printf("webhook: payment intent sem metadata esperada id=%s", intent.ID)
		c.JSON(http.StatusOK, gin.H{"ignored": "metadata incompleta"})
		return
	}

	db := dbpkg.DBInstance(c)
	var plan models.Plan
	if err := db.Where("slug = ?", planSlug).First(&plan).Error; err != nil {
		RespondError(c, "plano não encontrado", http.StatusBadRequest)
		return
	}

	res := ledgerSvc.ApplyPurchase(c.Request.Context(), userID, ledger.PurchaseInput{
		PurchaseID:     purchaseID,
		PlanID:         plan.Slug,
		PlanName:       plan.Name,
		AmountCents:    intent.Amount,
		PaymentMethod:  models.PAYMENT_METHOD_CARD,
		Status:         models.PURCHASE_STATUS_SUCCEEDED,
		CreditsGranted: plan.ReportCredits,
	})
	if !res.Success {
		// Stripe reenvia em caso de não-2xx; o replay reconcilia depois.
		RespondError(c, res.Error.Message, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": res.Error != nil})
}
