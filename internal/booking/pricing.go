package booking

// Price computes the cost of occupying one court for [start, start+duration)
// at the given base hourly rate, applying promotional windows.
//
// The interval is walked in half-hour segments. Each segment is billed at
// the rate of the first active rule whose window contains the segment's
// start instant, or at the base rate when no rule matches. Stepping keeps
// boundary conditions trivial: a promotion that begins mid-booking is
// billed correctly segment by segment with no interval intersection math.
//
// Pure function of its inputs.
func Price(start, duration, baseRate float64, rules []PromotionRule) float64 {
	total := 0.0
	for offset := 0.0; offset < duration; offset += 0.5 {
		at := start + offset
		rate := baseRate
		for _, rule := range rules {
			if rule.IsActive && at >= rule.StartTime && at < rule.EndTime {
				rate = rule.Rate
				break
			}
		}
		total += rate / 2
	}
	return total
}

// OverlappingRules returns every pair of active rules whose windows
// intersect. Overlap is not an error: resolution stays first-match-wins in
// list order, but callers saving rules should surface these pairs as a
// configuration warning since the later rule is silently shadowed.
func OverlappingRules(rules []PromotionRule) [][2]PromotionRule {
	var pairs [][2]PromotionRule
	for i, a := range rules {
		if !a.IsActive {
			continue
		}
		for _, b := range rules[i+1:] {
			if !b.IsActive {
				continue
			}
			if a.StartTime < b.EndTime && a.EndTime > b.StartTime {
				pairs = append(pairs, [2]PromotionRule{a, b})
			}
		}
	}
	return pairs
}

// AllocatePartialPayment spreads an operator-supplied paid total across the
// candidates of a multi-slot booking in generation order: each candidate
// absorbs min(remaining, its cost) until the total is exhausted and the
// rest receive zero. Deliberately greedy and order-dependent; isolated here
// so the strategy can be swapped or tested on its own.
func AllocatePartialPayment(costs []float64, totalPaid float64) []float64 {
	allocated := make([]float64, len(costs))
	remaining := totalPaid
	for i, cost := range costs {
		take := remaining
		if cost < take {
			take = cost
		}
		if take < 0 {
			take = 0
		}
		allocated[i] = take
		remaining -= take
	}
	return allocated
}
