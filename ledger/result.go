package ledger

import (
	"credanalyzer/models"
)

/************************************************
/**** MARK: ERROR KINDS ****/
/************************************************/
const KIND_INSUFFICIENT_CREDITS = "insufficient_credits"
const KIND_RENEWAL_REQUIRES_INSTRUMENT = "renewal_requires_instrument"
const KIND_PERSISTENCE_FAILURE = "persistence_failure"
const KIND_DUPLICATE_IGNORED = "duplicate_ignored"
const KIND_INVALID_INPUT = "invalid_input"

// Error é a falha (ou outcome informativo) de uma operação do ledger.
// Nenhum panic/exception cruza a fronteira do pacote: toda falha é valor.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// Result é o envelope devolvido para a camada de cima.
// DuplicateIgnored vem com Success=true e Error preenchido: é replay
// idempotente, não erro de verdade.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

func ok(data interface{}) Result {
	return Result{Success: true, Data: data}
}

func duplicate(data interface{}, msg string) Result {
	return Result{
		Success: true,
		Data:    data,
		Error:   &Error{Kind: KIND_DUPLICATE_IGNORED, Message: msg},
	}
}

func fail(kind, msg string) Result {
	return Result{Success: false, Error: &Error{Kind: kind, Message: msg}}
}

// State é a projeção read-only do registro de créditos.
// Stale indica que o valor veio do cache porque o store estava indisponível.
type State struct {
	Subscription models.Subscription `json:"subscription"`
	Stale        bool                `json:"stale"`
}

// ConsumeOutcome é o resultado de um consumo de crédito.
type ConsumeOutcome struct {
	CreditsRemaining int64 `json:"credits_remaining"`
	Duplicate        bool  `json:"duplicate"`
}
