package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// slotInteractions builds n interactions one minute apart starting at ts;
// the first successful of them end in renegotiation, the rest in no contact.
func slotInteractions(prefix string, ts time.Time, n, successful int) []model.Interaction {
	out := make([]model.Interaction, 0, n)
	for i := 0; i < n; i++ {
		outcome := model.OutcomeNoContact
		if i < successful {
			outcome = model.OutcomeRenegotiation
		}
		out = append(out, model.Interaction{
			ID:       fmt.Sprintf("%s-%d", prefix, i),
			ClientID: "c1",
			Datetime: ts.Add(time.Duration(i) * time.Minute),
			Channel:  model.ChannelCall,
			Outcome:  outcome,
		})
	}
	return out
}

func TestSlotKeyFormatting(t *testing.T) {
	tests := []struct {
		ts   string
		want string
	}{
		{ts: "2024-01-09T14:05:00Z", want: "tuesday:14"},
		{ts: "2024-01-07T09:59:59Z", want: "sunday:09"},
		{ts: "2024-01-13T00:00:00Z", want: "saturday:00"},
		// the encoded offset decides the slot, not UTC
		{ts: "2024-01-09T23:30:00-05:00", want: "tuesday:23"},
	}

	for _, tt := range tests {
		t.Run(tt.ts, func(t *testing.T) {
			got := model.SlotOf(mustTime(t, tt.ts)).String()
			if got != tt.want {
				t.Errorf("SlotOf(%s) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestCalculateBestTimeSlots_MinimumSample(t *testing.T) {
	ts := mustTime(t, "2024-01-09T14:00:00Z")

	tests := []struct {
		name    string
		count   int
		present bool
	}{
		{name: "four interactions", count: 4, present: false},
		{name: "five interactions", count: 5, present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := CalculateBestTimeSlots(slotInteractions("s", ts, tt.count, 2), DefaultMinimumSampleSize)
			if (len(slots) == 1) != tt.present {
				t.Fatalf("got %d slots, want present=%v", len(slots), tt.present)
			}
			if tt.present {
				if slots[0].Slot.String() != "tuesday:14" {
					t.Errorf("bucket = %v, want tuesday:14", slots[0].Slot)
				}
				if slots[0].TotalInteractions != 5 || slots[0].SuccessfulInteractions != 2 {
					t.Errorf("counts = %d/%d, want 2/5", slots[0].SuccessfulInteractions, slots[0].TotalInteractions)
				}
				if slots[0].SuccessRate != 0.4 {
					t.Errorf("SuccessRate = %v, want 0.4", slots[0].SuccessRate)
				}
			}
		})
	}
}

func TestCalculateBestTimeSlots_OrderAndTies(t *testing.T) {
	mon10 := mustTime(t, "2024-01-08T10:00:00Z")
	tue11 := mustTime(t, "2024-01-09T11:00:00Z")
	wed12 := mustTime(t, "2024-01-10T12:00:00Z")
	thu13 := mustTime(t, "2024-01-11T13:00:00Z")

	var interactions []model.Interaction
	interactions = append(interactions, slotInteractions("mon", mon10, 5, 1)...)
	interactions = append(interactions, slotInteractions("tue", tue11, 5, 3)...)
	interactions = append(interactions, slotInteractions("wed", wed12, 5, 1)...)
	interactions = append(interactions, slotInteractions("thu", thu13, 5, 5)...)

	want := []string{"thursday:13", "tuesday:11", "monday:10", "wednesday:12"}

	for run := 0; run < 3; run++ {
		slots := CalculateBestTimeSlots(interactions, 5)
		if len(slots) != len(want) {
			t.Fatalf("run %d: got %d slots, want %d", run, len(slots), len(want))
		}
		for i, s := range slots {
			if s.Slot.String() != want[i] {
				t.Errorf("run %d: slot[%d] = %v, want %v", run, i, s.Slot, want[i])
			}
		}
	}
}

func TestAggregateTimeBuckets_Coverage(t *testing.T) {
	interactions := append(
		slotInteractions("a", mustTime(t, "2024-01-08T10:00:00Z"), 7, 3),
		slotInteractions("b", mustTime(t, "2024-01-12T18:00:00Z"), 2, 1)...,
	)
	interactions = append(interactions,
		model.Interaction{ID: "bad", ClientID: "c1", Outcome: model.OutcomePaymentPromise},
	)

	buckets := AggregateTimeBuckets(interactions)

	total := 0
	for _, b := range buckets {
		total += b.TotalInteractions
	}
	if total != 9 {
		t.Errorf("sum of bucket totals = %d, want 9 (interactions with valid timestamps)", total)
	}
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Slot.String() != "monday:10" || buckets[1].Slot.String() != "friday:18" {
		t.Errorf("buckets not in first-seen order: %v, %v", buckets[0].Slot, buckets[1].Slot)
	}

	best := CalculateBestTimeSlots(interactions, 5)
	if len(best) != 1 || best[0].Slot.String() != "monday:10" {
		t.Errorf("CalculateBestTimeSlots() = %+v, want only monday:10", best)
	}
}

func TestCalculateBestTimeSlots_SuccessfulOutcomes(t *testing.T) {
	ts := mustTime(t, "2024-01-09T09:00:00Z")
	outcomes := []model.Outcome{
		model.OutcomePaymentPromise,
		model.OutcomeImmediatePayment,
		model.OutcomeRenegotiation,
		model.OutcomeSuccessfulContact,
		model.OutcomeNoContact,
		model.OutcomeRefusal,
	}

	var interactions []model.Interaction
	for i, o := range outcomes {
		interactions = append(interactions, model.Interaction{
			ID:       fmt.Sprintf("i%d", i),
			ClientID: "c1",
			Datetime: ts,
			Outcome:  o,
		})
	}

	slots := CalculateBestTimeSlots(interactions, 5)

	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	if slots[0].SuccessfulInteractions != 3 {
		t.Errorf("SuccessfulInteractions = %d, want 3", slots[0].SuccessfulInteractions)
	}
	if slots[0].SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", slots[0].SuccessRate)
	}
}
