// Package alerting re-evaluates user-defined alerts on a fixed interval
// and dispatches notifications when their conditions are satisfied.
package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chainpulse/internal/chain"
	"chainpulse/internal/metrics"
	"chainpulse/internal/normalize"
	"chainpulse/internal/notify"
	"chainpulse/internal/storage"
	"chainpulse/internal/upstream/bitquery"
	"chainpulse/internal/upstream/nodit"
	"github.com/sirupsen/logrus"
)

// Evaluation outcomes recorded per alert.
const (
	outcomeTriggered   = "triggered"
	outcomeNoTrigger   = "no_trigger"
	outcomeCooldown    = "cooldown"
	outcomeFetchError  = "fetch_error"
	outcomeUnsupported = "unsupported"
)

// AlertStore is the persistence boundary the evaluator needs.
type AlertStore interface {
	GetAlertsByType(ctx context.Context, alertType string) ([]storage.Alert, error)
	MarkAlertTriggered(ctx context.Context, id int64, triggeredTS int64, deactivate bool) error
	InsertEventLog(ctx context.Context, entry *storage.EventLog) error
}

// PriceSource batch-fetches current USD prices.
type PriceSource interface {
	GetPricesUSD(ctx context.Context, tokenIDs []string) (map[string]float64, error)
}

// GasSource reads the current Ethereum gas price in gwei.
type GasSource interface {
	GasPriceGwei(ctx context.Context) (float64, error)
}

// WhaleSource lists recent large transfers above a threshold.
type WhaleSource interface {
	LargeTransfers(ctx context.Context, id chain.ID, token string, threshold float64) ([]bitquery.Transfer, error)
}

// ActivityGateway fetches raw account transactions for activity counting.
type ActivityGateway interface {
	Call(ctx context.Context, method chain.Method, id chain.ID, params nodit.Params) (json.RawMessage, error)
}

// Evaluator runs the per-type alert checks. One alert's failure never
// aborts evaluation of the others in the same pass.
type Evaluator struct {
	store   AlertStore
	prices  PriceSource
	gas     GasSource
	whales  WhaleSource
	gateway ActivityGateway
	sender  notify.Sender
	trigLog *TriggerLog
	log     *logrus.Logger
	env     string
	now     func() time.Time
}

// NewEvaluator wires the evaluator's collaborators.
func NewEvaluator(
	store AlertStore,
	prices PriceSource,
	gas GasSource,
	whales WhaleSource,
	gateway ActivityGateway,
	sender notify.Sender,
	trigLog *TriggerLog,
	log *logrus.Logger,
	env string,
) *Evaluator {
	return &Evaluator{
		store:   store,
		prices:  prices,
		gas:     gas,
		whales:  whales,
		gateway: gateway,
		sender:  sender,
		trigLog: trigLog,
		log:     log,
		env:     env,
		now:     time.Now,
	}
}

// RunPricePhase evaluates all active price alerts. The distinct tokens
// across the batch are fetched once, not once per alert.
func (e *Evaluator) RunPricePhase(ctx context.Context) error {
	alerts, err := e.store.GetAlertsByType(ctx, storage.AlertTypePrice)
	if err != nil {
		return fmt.Errorf("load price alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var tokenIDs []string
	for _, alert := range alerts {
		token := strings.ToLower(alert.Token)
		if token != "" && !seen[token] {
			seen[token] = true
			tokenIDs = append(tokenIDs, token)
		}
	}

	priceMap, err := e.prices.GetPricesUSD(ctx, tokenIDs)
	if err != nil {
		for range alerts {
			metrics.RecordAlertEvaluation(storage.AlertTypePrice, outcomeFetchError)
		}
		return fmt.Errorf("batch price fetch: %w", err)
	}

	for i := range alerts {
		alert := &alerts[i]
		if !e.cooldownElapsed(alert) {
			metrics.RecordAlertEvaluation(storage.AlertTypePrice, outcomeCooldown)
			continue
		}

		price, ok := priceMap[strings.ToLower(alert.Token)]
		if !ok {
			metrics.RecordAlertEvaluation(storage.AlertTypePrice, outcomeFetchError)
			e.log.WithField("alert_id", alert.ID).WithField("token", alert.Token).
				Warn("No price available for alert token")
			continue
		}

		triggered, outcome := e.compare(alert, price)
		metrics.RecordAlertEvaluation(storage.AlertTypePrice, outcome)
		if !triggered {
			continue
		}

		message := fmt.Sprintf("%s price is now $%.2f (%s $%.2f)", alert.Token, price, alert.Condition, alert.Value)
		e.fire(ctx, alert, price, message)
	}

	return nil
}

// RunGasPhase evaluates all active gas alerts against one gas price read.
func (e *Evaluator) RunGasPhase(ctx context.Context) error {
	alerts, err := e.store.GetAlertsByType(ctx, storage.AlertTypeGas)
	if err != nil {
		return fmt.Errorf("load gas alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	gwei, err := e.gas.GasPriceGwei(ctx)
	if err != nil {
		for range alerts {
			metrics.RecordAlertEvaluation(storage.AlertTypeGas, outcomeFetchError)
		}
		return fmt.Errorf("gas price fetch: %w", err)
	}

	for i := range alerts {
		alert := &alerts[i]
		if !e.cooldownElapsed(alert) {
			metrics.RecordAlertEvaluation(storage.AlertTypeGas, outcomeCooldown)
			continue
		}

		triggered, outcome := e.compare(alert, gwei)
		metrics.RecordAlertEvaluation(storage.AlertTypeGas, outcome)
		if !triggered {
			continue
		}

		message := fmt.Sprintf("Gas price alert: %.2f gwei (%s %.2f)", gwei, alert.Condition, alert.Value)
		e.fire(ctx, alert, gwei, message)
	}

	return nil
}

// RunWhalePhase evaluates whale alerts; each triggers when any transfer
// above its value threshold is observed.
func (e *Evaluator) RunWhalePhase(ctx context.Context) error {
	alerts, err := e.store.GetAlertsByType(ctx, storage.AlertTypeWhale)
	if err != nil {
		return fmt.Errorf("load whale alerts: %w", err)
	}

	for i := range alerts {
		alert := &alerts[i]
		if !e.cooldownElapsed(alert) {
			metrics.RecordAlertEvaluation(storage.AlertTypeWhale, outcomeCooldown)
			continue
		}

		id, err := chain.Parse(alert.Chain)
		if err != nil {
			metrics.RecordAlertEvaluation(storage.AlertTypeWhale, outcomeUnsupported)
			e.log.WithError(err).WithField("alert_id", alert.ID).Warn("Whale alert has invalid chain")
			continue
		}

		transfers, err := e.whales.LargeTransfers(ctx, id, alert.Token, alert.Value)
		if err != nil {
			metrics.RecordAlertEvaluation(storage.AlertTypeWhale, outcomeFetchError)
			e.log.WithError(err).WithField("alert_id", alert.ID).Warn("Large transfer fetch failed")
			continue
		}

		if len(transfers) == 0 {
			metrics.RecordAlertEvaluation(storage.AlertTypeWhale, outcomeNoTrigger)
			continue
		}

		metrics.RecordAlertEvaluation(storage.AlertTypeWhale, outcomeTriggered)
		message := fmt.Sprintf("Whale alert: %d large transfers detected for %s on %s", len(transfers), alert.Token, alert.Chain)
		e.fire(ctx, alert, float64(len(transfers)), message)
	}

	return nil
}

// RunActivityPhase evaluates account-activity alerts: the count of the
// account's transactions in the trailing 24 hours against the threshold.
func (e *Evaluator) RunActivityPhase(ctx context.Context) error {
	alerts, err := e.store.GetAlertsByType(ctx, storage.AlertTypeAccountActivity)
	if err != nil {
		return fmt.Errorf("load account-activity alerts: %w", err)
	}

	for i := range alerts {
		alert := &alerts[i]
		if !e.cooldownElapsed(alert) {
			metrics.RecordAlertEvaluation(storage.AlertTypeAccountActivity, outcomeCooldown)
			continue
		}

		count, err := e.accountActivity(ctx, alert)
		if err != nil {
			metrics.RecordAlertEvaluation(storage.AlertTypeAccountActivity, outcomeFetchError)
			e.log.WithError(err).WithField("alert_id", alert.ID).Warn("Account activity fetch failed")
			continue
		}

		if float64(count) <= alert.Value {
			metrics.RecordAlertEvaluation(storage.AlertTypeAccountActivity, outcomeNoTrigger)
			continue
		}

		metrics.RecordAlertEvaluation(storage.AlertTypeAccountActivity, outcomeTriggered)
		message := fmt.Sprintf("Account activity alert: %d transactions in 24h (above %.0f)", count, alert.Value)
		e.fire(ctx, alert, float64(count), message)
	}

	return nil
}

// accountActivity counts the account's transactions within the trailing
// 24 hours, reusing the normalizer to read per-chain timestamps.
func (e *Evaluator) accountActivity(ctx context.Context, alert *storage.Alert) (int, error) {
	id, err := chain.Parse(alert.Chain)
	if err != nil {
		return 0, err
	}

	method := chain.MethodTransactionsByAccount
	if id.Family == chain.FamilyEthereum {
		method = chain.MethodTokenTransfersByAccount
	}

	raw, err := e.gateway.Call(ctx, method, id, nodit.Params{AccountAddress: alert.AccountAddress})
	if err != nil {
		return 0, err
	}

	record := normalize.Normalize(method, id, raw)
	if record.Type != normalize.KindTransfers {
		return 0, nil
	}

	cutoff := e.now().Add(-24 * time.Hour).Unix()
	count := 0
	for _, item := range record.Transfers {
		if item.Timestamp > cutoff {
			count++
		}
	}
	return count, nil
}

// cooldownElapsed reports whether the alert is outside its cooldown
// window, judged against the later of the persisted and in-process
// trigger times.
func (e *Evaluator) cooldownElapsed(alert *storage.Alert) bool {
	last := e.trigLog.Get(alert.ID)
	if persisted := time.Unix(alert.LastTriggeredTS, 0); alert.LastTriggeredTS > 0 && persisted.After(last) {
		last = persisted
	}
	if last.IsZero() {
		return true
	}

	cooldown := time.Duration(alert.CooldownMins) * time.Minute
	return e.now().Sub(last) >= cooldown
}

// compare applies the alert condition to an observed value. The "change"
// condition is accepted in stored definitions but has no baseline to
// compare against, so it never triggers.
func (e *Evaluator) compare(alert *storage.Alert, observed float64) (bool, string) {
	switch alert.Condition {
	case storage.ConditionAbove:
		if observed > alert.Value {
			return true, outcomeTriggered
		}
		return false, outcomeNoTrigger
	case storage.ConditionBelow:
		if observed < alert.Value {
			return true, outcomeTriggered
		}
		return false, outcomeNoTrigger
	case storage.ConditionChange:
		e.log.WithField("alert_id", alert.ID).Debug("Change condition has no baseline; skipping")
		return false, outcomeUnsupported
	default:
		e.log.WithField("alert_id", alert.ID).WithField("condition", alert.Condition).
			Warn("Unknown alert condition")
		return false, outcomeUnsupported
	}
}

// fire dispatches the notification and, on success, advances the cooldown
// clock and deactivates once-alerts. A failed dispatch leaves the alert
// eligible for the next pass.
func (e *Evaluator) fire(ctx context.Context, alert *storage.Alert, observed float64, message string) {
	now := e.now()

	n := &notify.Notification{
		AlertID:     alert.ID,
		AlertType:   alert.Type,
		Chain:       alert.Chain,
		Token:       alert.Token,
		Condition:   alert.Condition,
		Threshold:   alert.Value,
		Observed:    observed,
		Message:     message,
		Channel:     alert.NotifyChannel,
		Target:      alert.NotifyTarget,
		Timestamp:   now,
		Environment: e.env,
	}

	sendErr := e.sender.Send(ctx, n)
	metrics.RecordNotification(e.sender.Name(), sendErr)

	status := "sent"
	if sendErr != nil {
		status = "failed"
		e.log.WithError(sendErr).WithField("alert_id", alert.ID).Error("Notification dispatch failed")
	}
	if err := e.store.InsertEventLog(ctx, &storage.EventLog{
		AlertID:   alert.ID,
		EventType: "notification",
		Status:    status,
		Message:   message,
	}); err != nil {
		e.log.WithError(err).WithField("alert_id", alert.ID).Warn("Failed to record event log")
	}

	if sendErr != nil {
		return
	}

	deactivate := alert.Frequency == storage.FrequencyOnce
	e.trigLog.Record(alert.ID, now)
	if err := e.store.MarkAlertTriggered(ctx, alert.ID, now.Unix(), deactivate); err != nil {
		e.log.WithError(err).WithField("alert_id", alert.ID).Error("Failed to persist trigger")
	}
	if deactivate {
		e.trigLog.Delete(alert.ID)
	}

	e.log.WithFields(logrus.Fields{
		"alert_id":   alert.ID,
		"alert_type": alert.Type,
		"observed":   observed,
	}).Info("Alert triggered")
}
