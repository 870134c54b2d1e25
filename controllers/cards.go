package controllers

import (
	"net/http"

	dbpkg "credanalyzer/db"
	"credanalyzer/models"

	"github.com/gin-gonic/gin"
)

// GetCards lista os cartões salvos do usuário logado.
func GetCards(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	db := dbpkg.DBInstance(c)
	var cards []models.PaymentCard
	if err := db.Where("user_id = ?", user.ID).Order("is_default desc, id asc").Find(&cards).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, cards)
}

type AddCardRequest struct {
	PaymentMethodID string `json:"payment_method_id" form:"payment_method_id"`
	SetDefault      bool   `json:"set_default" form:"set_default"`
}

// AddCard associa o payment method ao cliente no provedor e guarda a cópia
// local (a regra da renovação automática consulta essa cópia).
func AddCard(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req AddCardRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PaymentMethodID == "" {
		RespondError(c, "payment_method_id é obrigatório", http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	customerID, err := provider.EnsureCustomer(ctx, user.Name, user.Email, user.StripeCustomerID)
	if err != nil {
		RespondError(c, "erro ao registrar cliente no provedor", http.StatusBadGateway)
		return
	}

	db := dbpkg.DBInstance(c)
	if customerID != user.StripeCustomerID {
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).
			Update("stripe_customer_id", customerID).Error; err != nil {
			RespondError(c, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	attached, err := provider.AttachCard(ctx, customerID, req.PaymentMethodID)
	if err != nil {
		RespondError(c, "erro ao salvar cartão no provedor", http.StatusBadGateway)
		return
	}

	var count int64
	if err := db.Model(&models.PaymentCard{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	card := models.PaymentCard{
		UserID:          user.ID,
		PaymentMethodID: attached.PaymentMethodID,
		Brand:           attached.Brand,
		Last4:           attached.Last4,
		ExpMonth:        attached.ExpMonth,
		ExpYear:         attached.ExpYear,
		IsDefault:       req.SetDefault || count == 0,
	}

	tx := db.Begin()
	if card.IsDefault {
		if err := tx.Model(&models.PaymentCard{}).Where("user_id = ?", user.ID).
			Update("is_default", false).Error; err != nil {
			tx.Rollback()
			RespondError(c, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Create(&card).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, card)
}

// SetDefaultCard elege o cartão padrão do usuário.
func SetDefaultCard(c *gin.Context) {
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
	var card models.PaymentCard
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&card).Error; err != nil {
		RespondError(c, "cartão não encontrado", http.StatusNotFound)
		return
	}

	tx := db.Begin()
	if err := tx.Model(&models.PaymentCard{}).Where("user_id = ?", user.ID).
		Update("is_default", false).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Model(&models.PaymentCard{}).Where("id = ?", card.ID).
		Update("is_default", true).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	card.IsDefault = true
	RespondSuccess(c, card)
}

// DeleteCard remove o cartão no provedor e a cópia local.
func DeleteCard(c *gin.Context) {
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
	var card models.PaymentCard
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&card).Error; err != nil {
		RespondError(c, "cartão não encontrado", http.StatusNotFound)
		return
	}

	if err := provider.DetachCard(c.Request.Context(), card.PaymentMethodID); err != nil {
		RespondError(c, "erro ao remover cartão no provedor", http.StatusBadGateway)
		return
	}
	if err := db.Delete(&card).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{"deleted": id})
}
