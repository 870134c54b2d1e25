package main

import (
	"log"
	"os"
	"time"

	"credanalyzer/config"
	"credanalyzer/controllers"
	"credanalyzer/db"
	"credanalyzer/ledger"
	"credanalyzer/payments"
	"credanalyzer/router"
	"credanalyzer/tools"
	"credanalyzer/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env é opcional; em produção as envs vêm do ambiente.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	conf := config.Get(configPath)

	tools.PasswordMinLength = conf.Security.PasswordMinChars

	db.SetConfigurations(conf)
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer database.Close()

	if err := db.SeedPlans(database); err != nil {
		log.Fatalf("seed plans: %v", err)
	}

	var provider payments.Provider
	switch conf.Payments.Provider {
	case "stripe":
		provider = payments.NewStripeProvider(conf.Payments.StripeSecretKey, conf.Payments.StripeWebhookSecret)
	default:
		log.Println("payments: usando provider mock")
		provider = payments.NewMockProvider()
	}
	pixGateway := payments.NewPixGateway(conf.Payments.PixKey)

	ledgerSvc := ledger.New(database, ledger.Options{
		DedupeWindow: time.Duration(conf.Ledger.DedupeWindowMinutes) * time.Minute,
		CacheTTL:     time.Duration(conf.Ledger.CacheTTLSeconds) * time.Second,
	})

	controllers.Configure(conf, ledgerSvc, provider, pixGateway)

	r := gin.New()
	r.Use(db.SetDBtoContext(database))
	router.Initialize(r, conf)

	workers.StartReportProcessor(database, ledgerSvc)

	log.Printf("credanalyzer listening on :%s", conf.ApiPort)
	if err := r.Run(":" + conf.ApiPort); err != nil {
		log.Fatal(err)
	}
}
