package controllers

import (
	"credanalyzer/config"
	"credanalyzer/ledger"
	"credanalyzer/payments"
)

var (
	conf       config.Configuration
	ledgerSvc  *ledger.Service
	provider   payments.Provider
	pixGateway *payments.PixGateway
)

// Configure injeta as dependências compartilhadas pelos handlers.
// Chamado uma vez no main, antes do router subir.
func Configure(c config.Configuration, l *ledger.Service, p payments.Provider, g *payments.PixGateway) {
	conf = c
	ledgerSvc = l
	provider = p
	pixGateway = g
}
