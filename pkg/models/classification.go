package models

import "fmt"

// Category is the pipeline category an event maps to.
type Category string

const (
	CategoryBuild  Category = "build"
	CategoryReview Category = "review"

	// CategoryDiscard marks events no predicate claimed. Discarded events
	// are acknowledged to the provider and never reach later stages.
	CategoryDiscard Category = "discard"
)

// DispatchCategories returns the categories that produce a dispatch, in
// classification order: build predicates are tried before review predicates.
func DispatchCategories() []Category {
	return []Category{CategoryBuild, CategoryReview}
}

func (c Category) String() string {
	return string(c)
}

func ParseCategory(name string) (Category, error) {
	switch Category(name) {
	case CategoryBuild:
		return CategoryBuild, nil
	case CategoryReview:
		return CategoryReview, nil
	default:
		return "", fmt.Errorf("unknown category %q", name)
	}
}

// ClassificationResult records the category an event was classified into and
// which provider predicate claimed it. MatchedRule is empty for discards
// (nothing matched) and carries the rule name otherwise.
type ClassificationResult struct {
	Category    Category `json:"category"`
	MatchedRule string   `json:"matched_rule,omitempty"`
}

// Discarded reports whether the event should be acknowledged without
// dispatching.
func (r ClassificationResult) Discarded() bool {
	return r.Category == CategoryDiscard
}
