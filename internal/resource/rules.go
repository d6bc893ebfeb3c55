package resource

import (
	"sync"

	"github.com/yanizio/storefront/internal/record"
)

var rulesOnce sync.Once

// registerRules installs the cross-field predicates the embedded schemas
// name.  Rules see the stored row overlaid with the submission.
func registerRules() {
	rulesOnce.Do(func() {
		record.RegisterRule("discount_within_original", discountWithinOriginal)
		record.RegisterRule("rating_in_range", ratingInRange)
	})
}

// A discounted price must not exceed the original price.
func discountWithinOriginal(r record.Record) *record.ValidationError {
	price, ok1 := r["discounted_price"].(float64)
	orig, ok2 := r["original_price"].(float64)
	if ok1 && ok2 && price > orig {
		return &record.ValidationError{
			Field:   "discounted_price",
			Message: "Discounted price must not exceed the original price.",
		}
	}
	return nil
}

func ratingInRange(r record.Record) *record.ValidationError {
	if v, ok := r["rating"].(float64); ok && (v < 1 || v > 5) {
		return &record.ValidationError{Field: "rating", Message: "Rating must be between 1 and 5."}
	}
	return nil
}
