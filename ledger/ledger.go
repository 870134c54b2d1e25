package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"credanalyzer/models"

	"github.com/jinzhu/gorm"
)

// Erros de domínio internos; viram kinds no Result, nunca sobem como panic.
var (
	errNoPlan          = errors.New("conta sem plano ativo")
	errPlanExhausted   = errors.New("créditos do plano esgotados")
	errVersionConflict = errors.New("conflito de versão no registro de créditos")
	errNoInstrument    = errors.New("renovação automática exige um cartão salvo")
)

const lockStripes = 64

// Options ajusta janelas do ledger. Zero usa os defaults.
type Options struct {
	// DedupeWindow é a janela onde dois consumos com o mesmo conteúdo para a
	// mesma conta contam como um só. Default 5 minutos.
	DedupeWindow time.Duration
	// CacheTTL é a janela de staleness do caminho de leitura. Default 5s.
	CacheTTL time.Duration
}

// Service é o dono do registro de créditos: toda mutação de Subscription
// passa por aqui, serializada por conta. A cobrança externa acontece ANTES
// de ApplyPurchase; nenhuma chamada de rede roda dentro da região travada.
type Service struct {
	db           *gorm.DB
	locks        [lockStripes]chan struct{}
	cache        *stateCache
	dedupeWindow time.Duration
	cacheTTL     time.Duration
}

func New(db *gorm.DB, opts Options) *Service {
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = 5 * time.Minute
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Second
	}
	s := &Service{
		db:           db,
		cache:        newStateCache(),
		dedupeWindow: opts.DedupeWindow,
		cacheTTL:     opts.CacheTTL,
	}
	for i := range s.locks {
		s.locks[i] = make(chan struct{}, 1)
	}
	return s
}

// lock serializa mutações por conta (stripe de mutexes por hash do ID).
func (s *Service) lock(accountID int64) func() {
	ch := s.locks[uint64(accountID)%lockStripes]
	ch <- struct{}{}
	return func() { <-ch }
}

// PurchaseInput carrega uma cobrança já concluída pelo provedor de pagamento.
type PurchaseInput struct {
	PurchaseID    string
	PlanID        string
	PlanName      string
	AmountCents   int64
	PaymentMethod string // card|pix
	Status        string // precisa ser succeeded
	CreditsGranted int64

	// PreserveExistingCredits troca a política aditiva (before+granted) por
	// "zera e usa só o que o plano concede".
	PreserveExistingCredits bool

	AutoRenew   bool
	PeriodStart time.Time
	PeriodEnd   time.Time
}

func (in PurchaseInput) invalidField() string {
	if in.PurchaseID == "" {
		return "purchase_id"
	}
	if in.PlanID == "" {
		return "plan_id"
	}
	if in.CreditsGranted <= 0 {
		return "credits_granted"
	}
	if in.AmountCents < 0 {
		return "amount_cents"
	}
	if in.PaymentMethod != models.PAYMENT_METHOD_CARD && in.PaymentMethod != models.PAYMENT_METHOD_PIX {
		return "payment_method"
	}
	return ""
}

// ApplyPurchase reconcilia uma compra concluída com o saldo da conta.
// Idempotente por PurchaseID: replays devolvem o resultado já computado.
// Subscription + Purchase (+ PlanChange) são escritos na mesma transação.
func (s *Service) ApplyPurchase(ctx context.Context, accountID int64, in PurchaseInput) Result {
	if accountID <= 0 {
		return fail(KIND_INVALID_INPUT, "account_id inválido")
	}
	if field := in.invalidField(); field != "" {
		return fail(KIND_INVALID_INPUT, "campo inválido: "+field)
	}
	if in.Status != models.PURCHASE_STATUS_SUCCEEDED {
		return fail(KIND_INVALID_INPUT, "somente compras succeeded entram no ledger")
	}

	unlock := s.lock(accountID)
	defer unlock()

	var out models.Subscription
	var replay bool

	err := s.withRetry(in.PurchaseID, func() error {
		return s.inTx(ctx, func(tx *gorm.DB) error {
			// Checagem de replay contra o store durável, dentro da transação.
			var prior models.Purchase
			err := tx.Where("purchase_id = ?", in.PurchaseID).First(&prior).Error
			if err != nil && !gorm.IsRecordNotFoundError(err) {
				return err
			}
			if err == nil && prior.Status == models.PURCHASE_STATUS_SUCCEEDED {
				replay = true
				out, err = s.replayResult(tx, accountID, prior)
				return err
			}
			pendingRowID := int64(0)
			if err == nil {
				// compra PIX registrada como pending sendo promovida agora
				pendingRowID = prior.ID
			}

			sub, found, err := loadSubscription(tx, accountID)
			if err != nil {
				return err
			}

			creditsBefore := int64(0)
			prevPlan := ""
			if found {
				creditsBefore = sub.CreditsRemaining
				prevPlan = sub.PlanName
			}

			creditsAfter := creditsBefore + in.CreditsGranted
			if in.PreserveExistingCredits {
				creditsAfter = in.CreditsGranted
			}

			now := time.Now()
			periodStart := in.PeriodStart
			periodEnd := in.PeriodEnd
			if periodStart.IsZero() {
				periodStart = now
			}
			if periodEnd.IsZero() {
				periodEnd = periodStart.AddDate(0, 1, 0)
			}

			if found {
				updates := map[string]interface{}{
					"has_plan":             true,
					"credits_remaining":    creditsAfter,
					"plan_credits_granted": in.CreditsGranted,
					"plan_name":            in.PlanName,
					"previous_plan_name":   prevPlan,
					"auto_renew":           in.AutoRenew,
					"period_start":         periodStart,
					"period_end":           periodEnd,
					"version":              sub.Version + 1,
				}
				res := tx.Model(&models.Subscription{}).
					Where("user_id = ? AND version = ?", accountID, sub.Version).
					Updates(updates)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errVersionConflict
				}
				sub.HasPlan = true
				sub.CreditsRemaining = creditsAfter
				sub.PlanCreditsGranted = in.CreditsGranted
				sub.PlanName = in.PlanName
				sub.PreviousPlanName = prevPlan
				sub.AutoRenew = in.AutoRenew
				sub.PeriodStart = &periodStart
				sub.PeriodEnd = &periodEnd
				sub.Version++
			} else {
				sub = models.Subscription{
					UserID:             accountID,
					HasPlan:            true,
					CreditsRemaining:   creditsAfter,
					PlanCreditsGranted: in.CreditsGranted,
					PlanName:           in.PlanName,
					AutoRenew:          in.AutoRenew,
					PeriodStart:        &periodStart,
					PeriodEnd:          &periodEnd,
					Active:             true,
					Version:            1,
				}
				if err := tx.Create(&sub).Error; err != nil {
					return err
				}
			}

			purchase := models.Purchase{
				ID:                    pendingRowID,
				PurchaseID:            in.PurchaseID,
				UserID:                accountID,
				PlanID:                in.PlanID,
				PlanName:              in.PlanName,
				AmountCents:           in.AmountCents,
				PaymentMethod:         in.PaymentMethod,
				Status:                models.PURCHASE_STATUS_SUCCEEDED,
				CreditsAdded:          in.CreditsGranted,
				CreditsBeforePurchase: creditsBefore,
				CreditsAfterPurchase:  creditsAfter,
				PreviousPlanName:      prevPlan,
				OccurredAt:            &now,
			}
			if pendingRowID > 0 {
				purchase.CreatedAt = prior.CreatedAt
				if err := tx.Save(&purchase).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Create(&purchase).Error; err != nil {
					return err
				}
			}

			if prevPlan != "" {
				change := models.PlanChange{
					UserID:        accountID,
					PurchaseID:    in.PurchaseID,
					PreviousPlan:  prevPlan,
					NewPlan:       in.PlanName,
					CreditsBefore: creditsBefore,
					CreditsAdded:  in.CreditsGranted,
					CreditsTotal:  creditsAfter,
				}
				if err := tx.Create(&change).Error; err != nil {
					return err
				}
			}

			out = sub
			return nil
		})
	})
	if err != nil {
		log.Printf("ledger: apply_purchase falhou purchase_id=%s account=%d err=%v", in.PurchaseID, accountID, err)
		return fail(KIND_PERSISTENCE_FAILURE, "falha ao persistir a compra; tente novamente com o mesmo purchase_id")
	}

	if replay {
		// Snapshot histórico da aplicação original: vale como resposta do
		// replay, mas não entra no cache de leitura (o saldo corrente pode
		// já ter andado desde então).
		return duplicate(out, "compra já aplicada anteriormente")
	}
	s.cache.set(accountID, out)
	return ok(out)
}

// replayResult reconstrói o registro resultante da aplicação original a
// partir do snapshot gravado na Purchase.
func (s *Service) replayResult(tx *gorm.DB, accountID int64, p models.Purchase) (models.Subscription, error) {
	sub, _, err := loadSubscription(tx, accountID)
	if err != nil {
		return models.Subscription{}, err
	}
	sub.UserID = accountID
	sub.HasPlan = true
	sub.CreditsRemaining = p.CreditsAfterPurchase
	sub.PlanCreditsGranted = p.CreditsAdded
	sub.PlanName = p.PlanName
	sub.PreviousPlanName = p.PreviousPlanName
	return sub, nil
}

// ConsumeCredit debita exatamente 1 crédito para a geração de um relatório.
// Idempotente por (conta, reportIdentifier) e por conteúdo idêntico dentro
// da janela de dedupe; check-and-decrement atômico dentro da transação.
func (s *Service) ConsumeCredit(ctx context.Context, accountID int64, reportIdentifier, contentHash string) Result {
	if accountID <= 0 {
		return fail(KIND_INVALID_INPUT, "account_id inválido")
	}
	if reportIdentifier == "" {
		return fail(KIND_INVALID_INPUT, "report_identifier é obrigatório")
	}

	unlock := s.lock(accountID)
	defer unlock()

	var outcome ConsumeOutcome

	err := s.withRetry(reportIdentifier, func() error {
		return s.inTx(ctx, func(tx *gorm.DB) error {
			// Replay pelo identificador.
			var prior models.ReportEvent
			err := tx.Where("user_id = ? AND report_identifier = ?", accountID, reportIdentifier).
				First(&prior).Error
			if err == nil {
				outcome = ConsumeOutcome{CreditsRemaining: prior.CreditsAfter, Duplicate: true}
				return nil
			}
			if !gorm.IsRecordNotFoundError(err) {
				return err
			}

			// Mesmo conteúdo para a mesma conta dentro da janela: duplicata.
			if contentHash != "" {
				cutoff := time.Now().Add(-s.dedupeWindow)
				err := tx.Where("user_id = ? AND content_hash = ? AND created_at > ?", accountID, contentHash, cutoff).
					First(&prior).Error
				if err == nil {
					outcome = ConsumeOutcome{CreditsRemaining: prior.CreditsAfter, Duplicate: true}
					return nil
				}
				if !gorm.IsRecordNotFoundError(err) {
					return err
				}
			}

			sub, found, err := loadSubscription(tx, accountID)
			if err != nil {
				return err
			}
			if !found || !sub.HasPlan {
				return errNoPlan
			}
			if sub.CreditsRemaining <= 0 {
				return errPlanExhausted
			}

			remaining := sub.CreditsRemaining - 1
			res := tx.Model(&models.Subscription{}).
				Where("user_id = ? AND version = ?", accountID, sub.Version).
				Updates(map[string]interface{}{
					"credits_remaining": remaining,
					"version":           sub.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}

			event := models.ReportEvent{
				UserID:           accountID,
				ReportIdentifier: reportIdentifier,
				ContentHash:      contentHash,
				CreditsAfter:     remaining,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}

			outcome = ConsumeOutcome{CreditsRemaining: remaining}
			return nil
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, errNoPlan), errors.Is(err, errPlanExhausted):
			return fail(KIND_INSUFFICIENT_CREDITS, err.Error())
		default:
			log.Printf("ledger: consume_credit falhou report_identifier=%s account=%d err=%v", reportIdentifier, accountID, err)
			return fail(KIND_PERSISTENCE_FAILURE, "falha ao debitar crédito; tente novamente com o mesmo report_identifier")
		}
	}

	s.cacheAdjust(accountID, outcome.CreditsRemaining)
	if outcome.Duplicate {
		return duplicate(outcome, "crédito já debitado para este relatório")
	}
	return ok(outcome)
}

// RefundCredit devolve o crédito de um relatório cuja geração falhou.
// Idempotente pelo marcador derivado do identificador original.
func (s *Service) RefundCredit(ctx context.Context, accountID int64, reportIdentifier string) Result {
	if accountID <= 0 || reportIdentifier == "" {
		return fail(KIND_INVALID_INPUT, "account_id e report_identifier são obrigatórios")
	}
	refundID := reportIdentifier + ":refund"

	unlock := s.lock(accountID)
	defer unlock()

	var outcome ConsumeOutcome

	err := s.withRetry(refundID, func() error {
		return s.inTx(ctx, func(tx *gorm.DB) error {
			var prior models.ReportEvent
			err := tx.Where("user_id = ? AND report_identifier = ?", accountID, refundID).
				First(&prior).Error
			if err == nil {
				outcome = ConsumeOutcome{CreditsRemaining: prior.CreditsAfter, Duplicate: true}
				return nil
			}
			if !gorm.IsRecordNotFoundError(err) {
				return err
			}

			// Só devolve o que foi de fato debitado.
			var consumed models.ReportEvent
			err = tx.Where("user_id = ? AND report_identifier = ?", accountID, reportIdentifier).
				First(&consumed).Error
			if err != nil {
				if gorm.IsRecordNotFoundError(err) {
					return errNoPlan
				}
				return err
			}

			sub, found, err := loadSubscription(tx, accountID)
			if err != nil {
				return err
			}
			if !found {
				return errNoPlan
			}

			remaining := sub.CreditsRemaining + 1
			res := tx.Model(&models.Subscription{}).
				Where("user_id = ? AND version = ?", accountID, sub.Version).
				Updates(map[string]interface{}{
					"credits_remaining": remaining,
					"version":           sub.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}

			event := models.ReportEvent{
				UserID:           accountID,
				ReportIdentifier: refundID,
				CreditsAfter:     remaining,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}

			outcome = ConsumeOutcome{CreditsRemaining: remaining}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, errNoPlan) {
			return fail(KIND_INVALID_INPUT, "nenhum consumo encontrado para este relatório")
		}
		log.Printf("ledger: refund_credit falhou report_identifier=%s account=%d err=%v", reportIdentifier, accountID, err)
		return fail(KIND_PERSISTENCE_FAILURE, "falha ao devolver crédito")
	}

	s.cacheAdjust(accountID, outcome.CreditsRemaining)
	if outcome.Duplicate {
		return duplicate(outcome, "crédito já devolvido para este relatório")
	}
	return ok(outcome)
}

// GetCurrentState lê o registro de créditos. Sem lock: leitura pode vir do
// cache dentro da janela de staleness. Com o store indisponível, devolve o
// último valor cacheado marcado como stale em vez de falhar o chamador.
// forceRefresh ignora o cache e lê direto do store.
func (s *Service) GetCurrentState(ctx context.Context, accountID int64, forceRefresh bool) Result {
	if accountID <= 0 {
		return fail(KIND_INVALID_INPUT, "account_id inválido")
	}

	if !forceRefresh {
		if entry, hit := s.cache.get(accountID); hit && time.Since(entry.fetchedAt) <= s.cacheTTL {
			return ok(State{Subscription: entry.sub})
		}
	}

	var sub models.Subscription
	err := s.db.Where("user_id = ?", accountID).First(&sub).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		if entry, hit := s.cache.get(accountID); hit && !forceRefresh {
			return ok(State{Subscription: entry.sub, Stale: true})
		}
		log.Printf("ledger: get_current_state falhou account=%d err=%v", accountID, err)
		return fail(KIND_PERSISTENCE_FAILURE, "store indisponível e sem valor em cache")
	}
	if gorm.IsRecordNotFoundError(err) {
		// Conta sem registro ainda: projeção zerada, sem plano.
		sub = models.Subscription{UserID: accountID, Active: true}
	}

	s.cache.set(accountID, sub)
	return ok(State{Subscription: sub})
}

// ToggleAutoRenew liga/desliga a renovação automática.
// Ligar exige instrumento salvo quando a última compra foi via método não
// renovável (PIX).
func (s *Service) ToggleAutoRenew(ctx context.Context, accountID int64, enable bool) Result {
	if accountID <= 0 {
		return fail(KIND_INVALID_INPUT, "account_id inválido")
	}

	unlock := s.lock(accountID)
	defer unlock()

	var out models.Subscription

	err := s.withRetry("auto_renew", func() error {
		return s.inTx(ctx, func(tx *gorm.DB) error {
			sub, found, err := loadSubscription(tx, accountID)
			if err != nil {
				return err
			}
			if !found {
				return errNoPlan
			}

			if enable {
				var last models.Purchase
				err := tx.Where("user_id = ? AND status = ?", accountID, models.PURCHASE_STATUS_SUCCEEDED).
					Order("occurred_at desc, id desc").
					First(&last).Error
				if err != nil && !gorm.IsRecordNotFoundError(err) {
					return err
				}
				if err == nil && last.PaymentMethod == models.PAYMENT_METHOD_PIX {
					var cards int64
					if err := tx.Model(&models.PaymentCard{}).
						Where("user_id = ?", accountID).
						Count(&cards).Error; err != nil {
						return err
					}
					if cards == 0 {
						return errNoInstrument
					}
				}
			}

			res := tx.Model(&models.Subscription{}).
				Where("user_id = ? AND version = ?", accountID, sub.Version).
				Updates(map[string]interface{}{
					"auto_renew": enable,
					"version":    sub.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}

			sub.AutoRenew = enable
			sub.Version++
			out = sub
			return nil
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, errNoInstrument):
			return fail(KIND_RENEWAL_REQUIRES_INSTRUMENT, errNoInstrument.Error())
		case errors.Is(err, errNoPlan):
			return fail(KIND_INVALID_INPUT, "conta sem registro de créditos")
		default:
			log.Printf("ledger: toggle_auto_renew falhou account=%d err=%v", accountID, err)
			return fail(KIND_PERSISTENCE_FAILURE, "falha ao atualizar renovação automática")
		}
	}

	s.cache.set(accountID, out)
	return ok(out)
}

// ClearPlan desassocia o plano atual (cancelamento). Créditos já pagos
// permanecem no registro; só has_plan/auto_renew são limpos.
func (s *Service) ClearPlan(ctx context.Context, accountID int64) Result {
	return s.clearFlags(ctx, accountID, map[string]interface{}{
		"has_plan":   false,
		"auto_renew": false,
	})
}

// CloseAccount marca o registro como inativo. Nunca deleta.
func (s *Service) CloseAccount(ctx context.Context, accountID int64) Result {
	return s.clearFlags(ctx, accountID, map[string]interface{}{
		"active":     false,
		"has_plan":   false,
		"auto_renew": false,
	})
}

func (s *Service) clearFlags(ctx context.Context, accountID int64, flags map[string]interface{}) Result {
	if accountID <= 0 {
		return fail(KIND_INVALID_INPUT, "account_id inválido")
	}

	unlock := s.lock(accountID)
	defer unlock()

	var out models.Subscription

	err := s.withRetry("clear_flags", func() error {
		return s.inTx(ctx, func(tx *gorm.DB) error {
			sub, found, err := loadSubscription(tx, accountID)
			if err != nil {
				return err
			}
			if !found {
				return errNoPlan
			}

			flags["version"] = sub.Version + 1
			res := tx.Model(&models.Subscription{}).
				Where("user_id = ? AND version = ?", accountID, sub.Version).
				Updates(flags)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}

			if err := tx.Where("user_id = ?", accountID).First(&out).Error; err != nil {
				return err
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, errNoPlan) {
			return fail(KIND_INVALID_INPUT, "conta sem registro de créditos")
		}
		log.Printf("ledger: clear_flags falhou account=%d err=%v", accountID, err)
		return fail(KIND_PERSISTENCE_FAILURE, "falha ao atualizar o registro de créditos")
	}

	s.cache.set(accountID, out)
	return ok(out)
}

/************************************************
/**** MARK: HELPERS ****/
/************************************************/

func loadSubscription(tx *gorm.DB, accountID int64) (models.Subscription, bool, error) {
	var sub models.Subscription
	err := tx.Where("user_id = ?", accountID).First(&sub).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return models.Subscription{}, false, nil
		}
		return models.Subscription{}, false, err
	}
	return sub, true, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := s.db.BeginTx(ctx, &sql.TxOptions{})
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// withRetry tenta a operação de novo uma vez (com backoff) para falhas de
// persistência e conflito de versão; erros de domínio sobem direto.
func (s *Service) withRetry(idempotencyKey string, fn func() error) error {
	err := fn()
	if err == nil || isDomainErr(err) {
		return err
	}
	log.Printf("ledger: retry após falha key=%s err=%v", idempotencyKey, err)
	time.Sleep(100 * time.Millisecond)
	return fn()
}

func isDomainErr(err error) bool {
	return errors.Is(err, errNoPlan) ||
		errors.Is(err, errPlanExhausted) ||
		errors.Is(err, errNoInstrument)
}

// cacheAdjust atualiza o saldo cacheado sem reler o store.
func (s *Service) cacheAdjust(accountID int64, remaining int64) {
	if entry, hit := s.cache.get(accountID); hit {
		entry.sub.CreditsRemaining = remaining
		s.cache.set(accountID, entry.sub)
		return
	}
	s.cache.delete(accountID)
}
