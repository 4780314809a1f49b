package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// CalculateCurrentDebt subtracts every payment in interactions from
// initialDebt without filtering by client. Callers that already narrowed
// the slice to one client use this form.
func CalculateCurrentDebt(interactions []model.Interaction, initialDebt decimal.Decimal) decimal.Decimal {
	return outstanding(initialDebt, totalPaid(interactions, func(model.Interaction) bool { return true }))
}

// CalculateDebtInfo computes clientID's balance. initialDebt is not
// validated; the current debt never drops below zero.
func CalculateDebtInfo(interactions []model.Interaction, clientID string, initialDebt decimal.Decimal) model.DebtInfo {
	paid := totalPaid(interactions, func(in model.Interaction) bool { return in.ClientID == clientID })
	return model.DebtInfo{
		ClientID:    clientID,
		InitialDebt: initialDebt,
		TotalPaid:   paid,
		CurrentDebt: outstanding(initialDebt, paid),
	}
}

// CalculateDebts returns one DebtInfo per client, in client order.
func CalculateDebts(interactions []model.Interaction, clients []model.Client) []model.DebtInfo {
	paidByClient := make(map[string]decimal.Decimal)
	for _, in := range interactions {
		if in.IsPayment() {
			paidByClient[in.ClientID] = paidByClient[in.ClientID].Add(*in.PaidAmount)
		}
	}

	debts := make([]model.DebtInfo, 0, len(clients))
	for _, c := range clients {
		paid := paidByClient[c.ID]
		debts = append(debts, model.DebtInfo{
			ClientID:    c.ID,
			InitialDebt: c.InitialDebt,
			TotalPaid:   paid,
			CurrentDebt: outstanding(c.InitialDebt, paid),
		})
	}
	return debts
}

func totalPaid(interactions []model.Interaction, include func(model.Interaction) bool) decimal.Decimal {
	paid := decimal.Zero
	for _, in := range interactions {
		if in.IsPayment() && include(in) {
			paid = paid.Add(*in.PaidAmount)
		}
	}
	return paid
}

func outstanding(initial, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, initial.Sub(paid))
}
