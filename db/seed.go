package db

import (
	"log"

	"credanalyzer/models"

	"github.com/jinzhu/gorm"
)

// SeedPlans garante o catálogo padrão de planos.
// Idempotente: só insere quando o slug ainda não existe.
func SeedPlans(db *gorm.DB) error {
	plans := []models.Plan{
		{
			Slug:          "basic",
			Name:          "Plano Básico",
			Description:   "Ideal para iniciantes",
			PriceCents:    3500,
			ReportCredits: 20,
		},
		{
			Slug:            "standard",
			Name:            "Plano Padrão",
			Description:     "Melhor custo-benefício",
			PriceCents:      5500,
			ReportCredits:   40,
			DiscountPercent: 21,
		},
		{
			Slug:            "premium",
			Name:            "Plano Premium",
			Description:     "Para uso intensivo",
			PriceCents:      7500,
			ReportCredits:   70,
			DiscountPercent: 39,
		},
	}

	for _, plan := range plans {
		var existing models.Plan
		err := db.Where("slug = ?", plan.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		plan.Currency = "BRL"
		plan.Interval = "monthly"
		plan.IsActive = true
		if err := db.Create(&plan).Error; err != nil {
			return err
		}
		log.Printf("seed: plano %s criado", plan.Slug)
	}
	return nil
}
