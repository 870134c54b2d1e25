package controllers

import (
	"net/http"

	"credanalyzer/ledger"

	"github.com/gin-gonic/gin"
)

// Me devolve o perfil do usuário logado junto com o estado de créditos.
func Me(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	user.Password = ""

	res := ledgerSvc.GetCurrentState(c.Request.Context(), user.ID, false)
	if !res.Success {
		RespondError(c, res.Error.Message, http.StatusServiceUnavailable)
		return
	}
	state := res.Data.(ledger.State)

	RespondSuccess(c, gin.H{
		"user":         user,
		"subscription": state.Subscription,
		"stale":        state.Stale,
	})
}
