package controllers

import (
	"net/http"

	dbpkg "credanalyzer/db"
	"credanalyzer/models"

	"github.com/gin-gonic/gin"
)

// GetPlans lista o catálogo de planos ativos (rota pública).
func GetPlans(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	var plans []models.Plan
	if err := db.Where("is_active = ?", true).Order("price_cents asc").Find(&plans).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, plans)
}

func GetPlan(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db := dbpkg.DBInstance(c)
	var plan models.Plan
	if err := db.First(&plan, id).Error; err != nil {
		RespondError(c, "plano não encontrado", http.StatusNotFound)
		return
	}
	RespondSuccess(c, plan)
}

/************************************************
/**** MARK: ADMIN ****/
/************************************************/

func CreatePlan(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	plan := models.Plan{}
	if err := c.Bind(&plan); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if plan.Slug == "" || plan.Name == "" {
		RespondError(c, "slug e name são obrigatórios", http.StatusBadRequest)
		return
	}
	if plan.ReportCredits <= 0 {
		RespondError(c, "report_credits deve ser maior que zero", http.StatusBadRequest)
		return
	}
	if plan.Currency == "" {
		plan.Currency = "BRL"
	}
	if plan.Interval == "" {
		plan.Interval = "monthly"
	}
	plan.IsActive = true
	if err := db.Create(&plan).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	RespondSuccess(c, plan)
}

func UpdatePlan(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db := dbpkg.DBInstance(c)

	var plan models.Plan
	if err := db.First(&plan, id).Error; err != nil {
		RespondError(c, "plano não encontrado", http.StatusNotFound)
		return
	}

	var input models.Plan
	if err := c.Bind(&input); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	// Slug nunca muda: compras antigas referenciam por slug.
	plan.Name = input.Name
	plan.Description = input.Description
	plan.PriceCents = input.PriceCents
	plan.ReportCredits = input.ReportCredits
	plan.DiscountPercent = input.DiscountPercent
	plan.IsActive = input.IsActive

	if err := db.Save(&plan).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	RespondSuccess(c, plan)
}

// DeletePlan desativa o plano; nunca remove a linha (compras referenciam).
func DeletePlan(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db := dbpkg.DBInstance(c)
	if err := db.Model(&models.Plan{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"deactivated": id})
}
