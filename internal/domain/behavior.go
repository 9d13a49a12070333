package domain

// BehaviorClass determines how a category's monthly amount is spread across days.
type BehaviorClass string

const (
	ClassFixed     BehaviorClass = "fixed"
	ClassSpread    BehaviorClass = "spread"
	ClassClustered BehaviorClass = "clustered"
)

// Valid reports whether c is a known behavior class.
func (c BehaviorClass) Valid() bool {
	switch c {
	case ClassFixed, ClassSpread, ClassClustered:
		return true
	}
	return false
}

// MaxClusteredDays caps how many days a clustered category may land on.
const MaxClusteredDays = 4

// CategoryBehaviorProfile is the static spending behavior of one category.
type CategoryBehaviorProfile struct {
	Category string        `json:"category" yaml:"category"`
	Class    BehaviorClass `json:"behavior_class" yaml:"behavior_class"`
	// WeekdayBias weights each weekday, index 0 = Monday. All zero means no bias curve.
	WeekdayBias  [7]float64 `json:"weekday_bias" yaml:"weekday_bias"`
	CooldownDays int        `json:"cooldown_days" yaml:"cooldown_days"`
	// MaxEventSlots caps the number of selected days; 0 means uncapped.
	MaxEventSlots int `json:"max_event_slots,omitempty" yaml:"max_event_slots,omitempty"`
}

// HasBias reports whether the profile carries a usable weekday bias curve.
func (p CategoryBehaviorProfile) HasBias() bool {
	for _, w := range p.WeekdayBias {
		if w > 0 {
			return true
		}
	}
	return false
}
