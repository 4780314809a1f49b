package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/reconcile"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/store"
)

const day = 24 * time.Hour

// Slot thresholds on the raw success rate.
const (
	highlyRecommendedRate = 0.7
	recommendedRate       = 0.5
	peakRate              = 0.7
	avoidRate             = 0.3
)

// BrokenPromises lists promises broken at least daysOverdue days ago.
func (s *Service) BrokenPromises(ctx context.Context, daysOverdue int) (*model.BrokenPromisesReport, error) {
	if daysOverdue < 0 {
		return nil, fmt.Errorf("%w: days_overdue must be a non-negative integer", ErrInvalidParameter)
	}

	ds, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	clients := ds.ClientIndex()

	report := &model.BrokenPromisesReport{
		DaysOverdueMinimum: daysOverdue,
		Promises:           make([]model.BrokenPromise, 0),
		ByClient:           make([]model.ClientBrokenPromises, 0),
	}
	byClient := make(map[string]int)
	totalDays := 0

	for _, l := range reconcile.LinkPromisesToPayments(ds.Interactions, s.cfg.GraceHours, now) {
		if l.Status != model.LinkBroken {
			continue
		}
		days := daysOverdueAt(l.PromisedDate, now)
		if days < daysOverdue {
			continue
		}

		bp := model.BrokenPromise{
			PromiseID:    l.PromiseID,
			ClientID:     l.ClientID,
			ClientName:   clients[l.ClientID].Name,
			Amount:       l.PromisedAmount,
			PromisedDate: l.PromisedDate,
			DaysOverdue:  days,
		}
		report.Promises = append(report.Promises, bp)
		report.Summary.TotalAmount = report.Summary.TotalAmount.Add(bp.Amount)
		totalDays += days

		i, ok := byClient[bp.ClientID]
		if !ok {
			i = len(report.ByClient)
			byClient[bp.ClientID] = i
			report.ByClient = append(report.ByClient, model.ClientBrokenPromises{
				ClientID:   bp.ClientID,
				ClientName: bp.ClientName,
				Promises:   make([]model.BrokenPromise, 0),
			})
		}
		group := &report.ByClient[i]
		group.Promises = append(group.Promises, bp)
		group.TotalAmount = group.TotalAmount.Add(bp.Amount)
		group.Count++
	}

	report.Summary.TotalBrokenPromises = len(report.Promises)
	report.Summary.UniqueClients = len(report.ByClient)
	if n := len(report.Promises); n > 0 {
		report.Summary.AvgDaysOverdue = round2(float64(totalDays) / float64(n))
	}
	return report, nil
}

func daysOverdueAt(promisedDate, now time.Time) int {
	days := int(math.Floor(float64(now.Sub(promisedDate)) / float64(day)))
	if days < 0 {
		return 0
	}
	return days
}

// BestTimeSlots ranks contact slots with at least minSamples interactions.
func (s *Service) BestTimeSlots(ctx context.Context, minSamples int) (*model.BestSlotsReport, error) {
	if minSamples < 0 {
		return nil, fmt.Errorf("%w: min_samples must be a non-negative integer", ErrInvalidParameter)
	}

	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	report := &model.BestSlotsReport{
		MinimumSampleSize: minSamples,
		TimeSlots:         make([]model.SlotRecommendation, 0),
		ByDayOfWeek:       make(map[string][]model.SlotRecommendation),
		PeakHours:         make([]model.SlotRecommendation, 0),
		AvoidHours:        make([]model.SlotRecommendation, 0),
	}

	var rateSum float64
	for _, b := range reconcile.CalculateBestTimeSlots(interactions, minSamples) {
		rec := model.SlotRecommendation{
			Bucket:                 b.Slot,
			DayOfWeek:              b.Slot.DayName(),
			Hour:                   b.Slot.Hour,
			SuccessRate:            round2(b.SuccessRate * 100),
			TotalInteractions:      b.TotalInteractions,
			SuccessfulInteractions: b.SuccessfulInteractions,
			Recommendation:         recommendation(b.SuccessRate),
		}
		report.TimeSlots = append(report.TimeSlots, rec)
		report.ByDayOfWeek[rec.DayOfWeek] = append(report.ByDayOfWeek[rec.DayOfWeek], rec)
		rateSum += b.SuccessRate * 100

		switch {
		case b.SuccessRate >= peakRate:
			report.PeakHours = append(report.PeakHours, rec)
		case b.SuccessRate < avoidRate:
			report.AvoidHours = append(report.AvoidHours, rec)
		}
	}

	report.Summary.TotalTimeSlotsAnalyzed = len(report.TimeSlots)
	if n := len(report.TimeSlots); n > 0 {
		best := report.TimeSlots[0]
		report.Summary.BestOverallSlot = &best
		report.Summary.AvgSuccessRate = round2(rateSum / float64(n))
	}
	return report, nil
}

func recommendation(rate float64) string {
	switch {
	case rate > highlyRecommendedRate:
		return "Highly Recommended"
	case rate > recommendedRate:
		return "Recommended"
	default:
		return "Consider"
	}
}

// ClientTimeline returns a client's interactions ordered by datetime.
// Interactions with an unparseable datetime sort last.
func (s *Service) ClientTimeline(ctx context.Context, clientID string) (*model.ClientTimeline, error) {
	client, err := s.client(ctx, clientID)
	if err != nil {
		return nil, err
	}

	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	links := make(map[string]model.PromisePaymentLink)
	for _, l := range reconcile.LinkPromisesToPayments(interactions, s.cfg.GraceHours, s.now()) {
		links[l.PromiseID] = l
	}

	timeline := make([]model.TimelineEntry, 0, len(interactions))
	for _, in := range interactions {
		entry := model.TimelineEntry{
			ID:       in.ID,
			Datetime: in.Datetime,
			Channel:  in.Channel,
			Outcome:  in.Outcome,
			AgentID:  in.AgentID,
			Notes:    in.Notes,
		}
		if l, ok := links[in.ID]; ok {
			entry.Promise = &model.PromiseDetail{
				Amount:       l.PromisedAmount,
				PromisedDate: l.PromisedDate,
				Status:       l.Status,
				PaymentIDs:   l.PaymentIDs,
			}
		}
		if in.IsPayment() {
			entry.Payment = &model.PaymentDetail{Amount: in.PaidValue()}
		}
		timeline = append(timeline, entry)
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		a, b := timeline[i].Datetime, timeline[j].Datetime
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.Before(b)
	})

	return &model.ClientTimeline{
		ClientID:          client.ID,
		ClientName:        client.Name,
		Timeline:          timeline,
		TotalInteractions: len(timeline),
		Debt:              reconcile.CalculateDebtInfo(interactions, client.ID, client.InitialDebt),
	}, nil
}

// ClientDebt returns the client's balance against its initial debt.
func (s *Service) ClientDebt(ctx context.Context, clientID string) (*model.DebtInfo, error) {
	client, err := s.client(ctx, clientID)
	if err != nil {
		return nil, err
	}

	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	info := reconcile.CalculateDebtInfo(interactions, client.ID, client.InitialDebt)
	return &info, nil
}

func (s *Service) client(ctx context.Context, clientID string) (model.Client, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Client{}, ErrClientNotFound
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// AgentEffectiveness summarises an agent's interactions. An agent is known
// only through its interactions, so an agent with none is not found.
func (s *Service) AgentEffectiveness(ctx context.Context, agentID string) (*model.AgentEffectiveness, error) {
	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{AgentID: agentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	if len(interactions) == 0 {
		return nil, ErrAgentNotFound
	}

	result := &model.AgentEffectiveness{AgentID: agentID, AmountCollected: decimal.Zero}
	m := &result.Metrics
	m.TotalInteractions = len(interactions)
	for _, in := range interactions {
		if in.Outcome.Successful() {
			m.SuccessfulInteractions++
		}
		if in.IsPayment() {
			result.AmountCollected = result.AmountCollected.Add(in.PaidValue())
		}
	}
	m.FailedInteractions = m.TotalInteractions - m.SuccessfulInteractions
	m.EffectivenessRate = percentage(m.SuccessfulInteractions, m.TotalInteractions)
	m.FailureRate = round2(100 - m.EffectivenessRate)
	if m.SuccessfulInteractions > 0 {
		m.AvgInteractionsPerSuccess = round2(float64(m.TotalInteractions) / float64(m.SuccessfulInteractions))
	}

	// Payments may come from any interaction of the client, not only this
	// agent's, so promises are reconciled against each client's full history.
	agentPromises := make(map[string]bool)
	seenClients := make(map[string]bool)
	clientIDs := make([]string, 0)
	for _, in := range interactions {
		if !in.IsPromise() {
			continue
		}
		agentPromises[in.ID] = true
		if !seenClients[in.ClientID] {
			seenClients[in.ClientID] = true
			clientIDs = append(clientIDs, in.ClientID)
		}
	}
	for _, clientID := range clientIDs {
		history, err := s.store.ListInteractions(ctx, store.InteractionFilter{ClientID: clientID})
		if err != nil {
			return nil, fmt.Errorf("failed to list client interactions: %w", err)
		}
		for _, l := range reconcile.LinkPromisesToPayments(history, s.cfg.GraceHours, s.now()) {
			if !agentPromises[l.PromiseID] {
				continue
			}
			result.PromisesTotal++
			if l.Status == model.LinkFulfilled {
				result.PromisesKept++
			}
		}
	}

	result.PerformanceLevel = performanceLevel(m.EffectivenessRate)
	return result, nil
}

func performanceLevel(rate float64) string {
	switch {
	case rate >= 80:
		return "Excellent"
	case rate >= 60:
		return "Good"
	case rate >= 40:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// ConfiguredGrace asks PromiseLinks for the configured grace window. Zero
// is a real window: payments must land before the promised date ends.
const ConfiguredGrace = -1

// PromiseLinks returns the raw reconciliation links, optionally for one
// client.
func (s *Service) PromiseLinks(ctx context.Context, clientID string, graceHours int) ([]model.PromisePaymentLink, error) {
	switch {
	case graceHours == ConfiguredGrace:
		graceHours = s.cfg.GraceHours
	case graceHours < 0:
		return nil, fmt.Errorf("%w: grace_hours must be a non-negative integer", ErrInvalidParameter)
	}
	if clientID != "" {
		if _, err := s.client(ctx, clientID); err != nil {
			return nil, err
		}
	}

	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return reconcile.LinkPromisesToPayments(interactions, graceHours, s.now()), nil
}

// DashboardKPIs computes the headline portfolio figures.
func (s *Service) DashboardKPIs(ctx context.Context) (*model.DashboardKPIs, error) {
	ds, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	kpis := &model.DashboardKPIs{
		TotalDebt:         decimal.Zero,
		TotalPaid:         decimal.Zero,
		TotalPromised:     decimal.Zero,
		AveragePayment:    decimal.Zero,
		TotalInteractions: len(ds.Interactions),
	}
	for _, c := range ds.Clients {
		kpis.TotalDebt = kpis.TotalDebt.Add(c.InitialDebt)
	}

	payments := 0
	for _, in := range ds.Interactions {
		if in.Outcome != model.OutcomeNoContact {
			kpis.SuccessfulContacts++
		}
		if in.IsPayment() {
			payments++
			kpis.TotalPaid = kpis.TotalPaid.Add(in.PaidValue())
		}
		if in.IsPromise() {
			kpis.Promises++
			kpis.TotalPromised = kpis.TotalPromised.Add(in.PromisedValue())
		}
	}
	kpis.ImmediatePayments = payments

	links := reconcile.LinkPromisesToPayments(ds.Interactions, s.cfg.GraceHours, s.now())
	counts := reconcile.CountByStatus(links)
	kpis.PromisesKept = counts[model.LinkFulfilled]
	kpis.PromisesBroken = counts[model.LinkBroken]
	kpis.PromisesPending = counts[model.LinkPending]

	atRisk := make(map[string]bool)
	for _, l := range links {
		if l.Status == model.LinkBroken {
			atRisk[l.ClientID] = true
		}
	}
	kpis.ClientsAtRisk = len(atRisk)

	if kpis.TotalDebt.IsPositive() {
		kpis.RecoveryRate = round2(kpis.TotalPaid.Div(kpis.TotalDebt).InexactFloat64() * 100)
	}
	kpis.ContactRate = percentage(kpis.SuccessfulContacts, kpis.TotalInteractions)
	if payments > 0 {
		kpis.AveragePayment = kpis.TotalPaid.Div(decimal.NewFromInt(int64(payments))).Round(2)
	}
	return kpis, nil
}

// DashboardActivity counts interactions by outcome and channel.
func (s *Service) DashboardActivity(ctx context.Context) (*model.DashboardActivity, error) {
	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	activity := &model.DashboardActivity{
		TotalInteractions: len(interactions),
		ByOutcome:         make(map[model.Outcome]int),
		ByChannel:         make(map[model.Channel]int),
	}
	for _, in := range interactions {
		activity.ByOutcome[in.Outcome]++
		activity.ByChannel[in.Channel]++
	}
	return activity, nil
}

// DashboardFunnel follows contact attempts through to payments.
func (s *Service) DashboardFunnel(ctx context.Context) (*model.Funnel, error) {
	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	funnel := &model.Funnel{Attempts: len(interactions)}
	for _, in := range interactions {
		if in.Outcome != model.OutcomeNoContact {
			funnel.Responses++
		}
		if in.IsPromise() {
			funnel.Promises++
		}
		if in.IsPayment() {
			funnel.Payments++
		}
	}
	return funnel, nil
}

// PromisesRisk ranks unfulfilled promises by days remaining until due,
// most urgent first.
func (s *Service) PromisesRisk(ctx context.Context) ([]model.PromiseRisk, error) {
	interactions, err := s.store.ListInteractions(ctx, store.InteractionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	now := s.now()
	risks := make([]model.PromiseRisk, 0)
	for _, l := range reconcile.LinkPromisesToPayments(interactions, s.cfg.GraceHours, now) {
		if l.Status == model.LinkFulfilled {
			continue
		}
		remaining := int(math.Ceil(float64(l.PromisedDate.Sub(now)) / float64(day)))
		risks = append(risks, model.PromiseRisk{
			PromiseID:     l.PromiseID,
			ClientID:      l.ClientID,
			Amount:        l.PromisedAmount,
			DueDate:       l.PromisedDate,
			DaysRemaining: remaining,
			Risk:          riskLevel(remaining),
		})
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].DaysRemaining < risks[j].DaysRemaining
	})
	return risks, nil
}

func riskLevel(daysRemaining int) string {
	switch {
	case daysRemaining < 0:
		return "high"
	case daysRemaining <= 7:
		return "medium"
	default:
		return "low"
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
