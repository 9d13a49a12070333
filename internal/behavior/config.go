// Package behavior holds the static per-category spending behavior tables:
// behavior class, weekday bias curve and cooldown spacing.
package behavior

import (
	"fmt"
	"sort"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
)

// Registry is an immutable lookup of category behavior profiles.
// It is safe for concurrent use once built.
type Registry struct {
	profiles map[string]domain.CategoryBehaviorProfile
	order    []string
}

// NewRegistry validates the profiles and builds a registry. Clustered profiles
// without a slot cap get MaxClusteredDays.
func NewRegistry(profiles []domain.CategoryBehaviorProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]domain.CategoryBehaviorProfile, len(profiles))}
	for _, p := range profiles {
		if err := validateProfile(&p); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.Category]; dup {
			return nil, &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("duplicate profile %q", p.Category)}
		}
		r.profiles[p.Category] = p
		r.order = append(r.order, p.Category)
	}
	return r, nil
}

func validateProfile(p *domain.CategoryBehaviorProfile) error {
	if p.Category == "" {
		return &domain.ErrValidation{Field: "category", Message: "required"}
	}
	if !p.Class.Valid() {
		return &domain.ErrValidation{Field: "behavior_class", Message: fmt.Sprintf("unknown class %q for %s", p.Class, p.Category)}
	}
	if p.CooldownDays < 0 {
		return &domain.ErrValidation{Field: "cooldown_days", Message: fmt.Sprintf("negative cooldown for %s", p.Category)}
	}
	if p.MaxEventSlots < 0 {
		return &domain.ErrValidation{Field: "max_event_slots", Message: fmt.Sprintf("negative slot cap for %s", p.Category)}
	}
	for i, w := range p.WeekdayBias {
		if w < 0 {
			return &domain.ErrValidation{Field: "weekday_bias", Message: fmt.Sprintf("negative bias at index %d for %s", i, p.Category)}
		}
	}
	if p.Class == domain.ClassClustered {
		if p.MaxEventSlots == 0 || p.MaxEventSlots > domain.MaxClusteredDays {
			p.MaxEventSlots = domain.MaxClusteredDays
		}
	}
	return nil
}

// Profile returns the profile of a category.
func (r *Registry) Profile(category string) (domain.CategoryBehaviorProfile, bool) {
	if r == nil {
		return domain.CategoryBehaviorProfile{}, false
	}
	p, ok := r.profiles[category]
	return p, ok
}

// ClassOf returns the configured class of a category, or fallback.
func (r *Registry) ClassOf(category string, fallback domain.BehaviorClass) domain.BehaviorClass {
	if p, ok := r.Profile(category); ok {
		return p.Class
	}
	return fallback
}

// Categories returns the configured categories in declaration order.
func (r *Registry) Categories() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// SortedCategories returns the keys of an amount map in lexical order, the
// processing order every allocation step uses.
func SortedCategories[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
