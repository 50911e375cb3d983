package periods

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/praise"
)

// Assignment pairs one praise item with one quantifier.
type Assignment struct {
	PraiseID     uuid.UUID
	QuantifierID uuid.UUID
}

// Assigner distributes a period's praise across the quantifier pool. K is
// how many distinct quantifiers every praise item must get. A quantifier
// never judges praise they gave or received, and items for the same receiver
// go to the same quantifiers whenever the pool allows it, so each quantifier
// sees a receiver's work as a whole.
type Assigner struct {
	K int
}

// receiverBucket groups a receiver's praise for joint assignment.
type receiverBucket struct {
	receiverUser *uuid.UUID
	items        []praise.Praise
}

// Plan computes the full assignment for the given praise and pool. It is
// deterministic for a given input ordering and pool: ties in quantifier load
// break on the quantifier id. An error means the pool cannot cover some item
// even after relaxing bucket affinity, and nothing should be written.
func (a Assigner) Plan(items []praise.Praise, pool []uuid.UUID) ([]Assignment, error) {
	if a.K <= 0 {
		return nil, fmt.Errorf("periods: quantifiers per receiver must be positive: %w", httpx.ErrValidation)
	}
	buckets, order := bucketByReceiver(items)
	load := make(map[uuid.UUID]int, len(pool))

	var plan []Assignment
	for _, receiverID := range order {
		bucket := buckets[receiverID]
		excluded := bucketExclusions(bucket)
		eligible := filterPool(pool, excluded)

		if len(eligible) >= a.K {
			chosen := leastLoaded(eligible, load, a.K)
			for _, item := range bucket.items {
				for _, q := range chosen {
					plan = append(plan, Assignment{PraiseID: item.ID, QuantifierID: q})
					load[q]++
				}
			}
			continue
		}

		// Pool too small for shared exclusions. Fall back to item-level
		// exclusions so givers of sibling praise stay usable.
		for _, item := range bucket.items {
			itemExcluded := map[uuid.UUID]struct{}{}
			if bucket.receiverUser != nil {
				itemExcluded[*bucket.receiverUser] = struct{}{}
			}
			if item.Giver.UserID != nil {
				itemExcluded[*item.Giver.UserID] = struct{}{}
			}
			itemEligible := filterPool(pool, itemExcluded)
			if len(itemEligible) < a.K {
				return nil, fmt.Errorf("periods: pool of %d cannot supply %d quantifiers for praise %s: %w",
					len(pool), a.K, item.ID, httpx.ErrValidation)
			}
			chosen := pickWithPreference(eligible, itemEligible, load, a.K)
			for _, q := range chosen {
				plan = append(plan, Assignment{PraiseID: item.ID, QuantifierID: q})
				load[q]++
			}
		}
	}
	return plan, nil
}

// Verify reports whether the pool covers the praise set under the shared
// bucket exclusions. Needed is the worst bucket's demand: K plus however
// many pool members that bucket rules out.
func (a Assigner) Verify(items []praise.Praise, pool []uuid.UUID) PoolVerification {
	buckets, order := bucketByReceiver(items)
	needed := a.K
	for _, receiverID := range order {
		excludedInPool := len(pool) - len(filterPool(pool, bucketExclusions(buckets[receiverID])))
		if demand := a.K + excludedInPool; demand > needed {
			needed = demand
		}
	}
	verification := PoolVerification{
		QuantifierPoolSize:       len(pool),
		QuantifierPoolSizeNeeded: needed,
	}
	if deficit := needed - len(pool); deficit > 0 {
		verification.QuantifierPoolDeficitSize = deficit
	}
	return verification
}

func bucketByReceiver(items []praise.Praise) (map[uuid.UUID]*receiverBucket, []uuid.UUID) {
	buckets := map[uuid.UUID]*receiverBucket{}
	var order []uuid.UUID
	for _, item := range items {
		b, ok := buckets[item.ReceiverID]
		if !ok {
			b = &receiverBucket{receiverUser: item.Receiver.UserID}
			buckets[item.ReceiverID] = b
			order = append(order, item.ReceiverID)
		}
		b.items = append(b.items, item)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	return buckets, order
}

func bucketExclusions(b *receiverBucket) map[uuid.UUID]struct{} {
	excluded := map[uuid.UUID]struct{}{}
	if b.receiverUser != nil {
		excluded[*b.receiverUser] = struct{}{}
	}
	for _, item := range b.items {
		if item.Giver.UserID != nil {
			excluded[*item.Giver.UserID] = struct{}{}
		}
	}
	return excluded
}

func filterPool(pool []uuid.UUID, excluded map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(pool))
	for _, q := range pool {
		if _, skip := excluded[q]; !skip {
			out = append(out, q)
		}
	}
	return out
}

// leastLoaded picks the k quantifiers with the fewest assignments so far.
func leastLoaded(candidates []uuid.UUID, load map[uuid.UUID]int, k int) []uuid.UUID {
	sorted := append([]uuid.UUID(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if load[sorted[i]] != load[sorted[j]] {
			return load[sorted[i]] < load[sorted[j]]
		}
		return sorted[i].String() < sorted[j].String()
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// pickWithPreference fills k slots taking every fully eligible quantifier
// first, then the least-loaded item-eligible extras.
func pickWithPreference(preferred, itemEligible []uuid.UUID, load map[uuid.UUID]int, k int) []uuid.UUID {
	chosen := make([]uuid.UUID, 0, k)
	taken := map[uuid.UUID]struct{}{}
	for _, q := range leastLoaded(preferred, load, k) {
		chosen = append(chosen, q)
		taken[q] = struct{}{}
	}
	if len(chosen) >= k {
		return chosen[:k]
	}
	extras := filterPool(itemEligible, taken)
	for _, q := range leastLoaded(extras, load, k-len(chosen)) {
		chosen = append(chosen, q)
	}
	return chosen
}
