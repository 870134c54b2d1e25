package controllers

import (
	"net/http"

	dbpkg "credanalyzer/db"
	"credanalyzer/ledger"
	"credanalyzer/models"

	"github.com/gin-gonic/gin"
)

// GetSubscription devolve o estado corrente de créditos do usuário logado.
// ?refresh=1 força leitura direta do store, ignorando o cache.
func GetSubscription(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	force := c.Query("refresh") == "1"
	res := ledgerSvc.GetCurrentState(c.Request.Context(), user.ID, force)
	if !res.Success {
		RespondError(c, res.Error.Message, http.StatusServiceUnavailable)
		return
	}

	state := res.Data.(ledger.State)
	c.JSON(http.StatusOK, gin.H{
		"subscription": state.Subscription,
		"stale":        state.Stale,
	})
}

type AutoRenewRequest struct {
	Enabled bool `json:"enabled" form:"enabled"`
}

// SetAutoRenew liga/desliga a renovação automática. Ligar depois de uma
// compra PIX exige cartão salvo.
func SetAutoRenew(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req AutoRenewRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	res := ledgerSvc.ToggleAutoRenew(c.Request.Context(), user.ID, req.Enabled)
	if !res.Success {
		switch res.Error.Kind {
		case ledger.KIND_RENEWAL_REQUIRES_INSTRUMENT:
			c.JSON(http.StatusConflict, gin.H{
				"error": res.Error.Message,
				"kind":  res.Error.Kind,
			})
		case ledger.KIND_INVALID_INPUT:
			RespondError(c, res.Error.Message, http.StatusBadRequest)
		default:
			RespondError(c, res.Error.Message, http.StatusInternalServerError)
		}
		return
	}
	RespondSuccess(c, res.Data)
}

// CancelSubscription desassocia o plano. Créditos já pagos permanecem.
func CancelSubscription(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	res := ledgerSvc.ClearPlan(c.Request.Context(), user.ID)
	if !res.Success {
		if res.Error.Kind == ledger.KIND_INVALID_INPUT {
			RespondError(c, res.Error.Message, http.StatusBadRequest)
			return
		}
		RespondError(c, res.Error.Message, http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, res.Data)
}

// GetPayments lista o histórico de compras do usuário logado.
func GetPayments(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	db := dbpkg.DBInstance(c)
	var purchases []models.Purchase
	if err := db.Where("user_id = ?", user.ID).
		Order("occurred_at desc, id desc").
		Find(&purchases).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, purchases)
}

// GetPlanChanges lista o histórico de mudanças de plano do usuário logado.
func GetPlanChanges(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	db := dbpkg.DBInstance(c)
	var changes []models.PlanChange
	if err := db.Where("user_id = ?", user.ID).
		Order("id desc").
		Find(&changes).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, changes)
}
