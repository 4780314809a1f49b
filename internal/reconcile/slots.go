package reconcile

import (
	"sort"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// DefaultMinimumSampleSize keeps slots backed by one or two interactions
// out of the ranking.
const DefaultMinimumSampleSize = 5

// AggregateTimeBuckets counts interactions per (weekday, hour) slot in the
// order slots are first seen. Weekday and hour come from each timestamp's
// own offset; mixed offsets are not normalized.
func AggregateTimeBuckets(interactions []model.Interaction) []model.TimeBucket {
	index := make(map[model.SlotKey]int)
	buckets := make([]model.TimeBucket, 0)

	for _, in := range interactions {
		if !in.HasValidTime() {
			continue
		}

		key := model.SlotOf(in.Datetime)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, model.TimeBucket{Slot: key})
		}

		buckets[i].TotalInteractions++
		if in.Outcome.Successful() {
			buckets[i].SuccessfulInteractions++
		}
	}

	for i := range buckets {
		buckets[i].SuccessRate = float64(buckets[i].SuccessfulInteractions) / float64(buckets[i].TotalInteractions)
	}

	return buckets
}

// CalculateBestTimeSlots ranks slots with at least minimumSampleSize
// interactions by success rate, highest first. Equal rates keep first-seen
// order so identical input always yields identical output.
func CalculateBestTimeSlots(interactions []model.Interaction, minimumSampleSize int) []model.TimeBucket {
	all := AggregateTimeBuckets(interactions)

	slots := make([]model.TimeBucket, 0, len(all))
	for _, b := range all {
		if b.TotalInteractions >= minimumSampleSize {
			slots = append(slots, b)
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].SuccessRate > slots[j].SuccessRate
	})

	return slots
}
