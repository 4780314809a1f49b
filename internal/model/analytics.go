package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LinkStatus is the fulfillment state of a payment promise
type LinkStatus string

const (
	LinkPending   LinkStatus = "PENDING"
	LinkFulfilled LinkStatus = "FULFILLED"
	LinkBroken    LinkStatus = "BROKEN"
)

// PromisePaymentLink ties a promise to the payments that fulfilled it.
// The status depends on the evaluation time and can move from PENDING to
// BROKEN between calls with identical input.
type PromisePaymentLink struct {
	PromiseID      string          `json:"promise_id"`
	PaymentIDs     []string        `json:"payment_ids"`
	Status         LinkStatus      `json:"status"`
	GraceHours     int             `json:"grace_period_hours"`
	ClientID       string          `json:"client_id"`
	PromisedAmount decimal.Decimal `json:"promised_amount"`
	PromisedDate   time.Time       `json:"promised_date"`
	GraceEnd       time.Time       `json:"grace_end"`
}

// SlotKey identifies a (day-of-week, hour) contact slot
type SlotKey struct {
	Day  time.Weekday
	Hour int
}

// SlotOf returns the slot of t using the weekday and hour encoded in t's
// own location.
func SlotOf(t time.Time) SlotKey {
	return SlotKey{Day: t.Weekday(), Hour: t.Hour()}
}

// DayName is the lowercase English weekday name.
func (k SlotKey) DayName() string {
	return strings.ToLower(k.Day.String())
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s:%02d", k.DayName(), k.Hour)
}

func (k SlotKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SlotKey) UnmarshalText(b []byte) error {
	parsed, err := ParseSlotKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseSlotKey parses "tuesday:14"
func ParseSlotKey(s string) (SlotKey, error) {
	day, hour, ok := strings.Cut(s, ":")
	if !ok {
		return SlotKey{}, fmt.Errorf("invalid slot key %q", s)
	}
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return SlotKey{}, fmt.Errorf("invalid slot hour %q", hour)
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), day) {
			return SlotKey{Day: d, Hour: h}, nil
		}
	}
	return SlotKey{}, fmt.Errorf("invalid slot day %q", day)
}

// TimeBucket aggregates interaction outcomes for one slot
type TimeBucket struct {
	Slot                   SlotKey `json:"bucket_key"`
	TotalInteractions      int     `json:"total_interactions"`
	SuccessfulInteractions int     `json:"successful_interactions"`
	SuccessRate            float64 `json:"success_rate"`
}

// DebtInfo is a client's running balance
type DebtInfo struct {
	ClientID    string          `json:"client_id"`
	InitialDebt decimal.Decimal `json:"initial_debt"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	CurrentDebt decimal.Decimal `json:"current_debt"`
}
