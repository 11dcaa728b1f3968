package detect

import (
	"fmt"
	"strings"
)

// Registry is an immutable, ordered set of detection rules. It is safe for
// concurrent use without locking.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a registry from rules, preserving their order
func NewRegistry(rules ...Rule) (*Registry, error) {
	seen := make(map[Category]bool, len(rules))
	copied := make([]Rule, 0, len(rules))

	for _, rule := range rules {
		if rule.Pattern == nil {
			return nil, fmt.Errorf("rule %s has no pattern", rule.Category)
		}
		if seen[rule.Category] {
			return nil, fmt.Errorf("duplicate rule: %s", rule.Category)
		}
		seen[rule.Category] = true
		copied = append(copied, rule)
	}

	return &Registry{rules: copied}, nil
}

// DefaultRegistry returns a registry holding every built-in rule
func DefaultRegistry() *Registry {
	return &Registry{rules: GetDefaultRules()}
}

// Select returns a registry restricted to the named categories. The name
// "all" keeps every rule. Rule order is not affected by the order of names.
func (r *Registry) Select(names []string) (*Registry, error) {
	enabled := make(map[Category]bool)

	for _, name := range names {
		if strings.EqualFold(name, "all") {
			for _, rule := range r.rules {
				enabled[rule.Category] = true
			}
			continue
		}

		category := Category(strings.ToUpper(strings.TrimSpace(name)))
		if _, ok := r.Rule(category); !ok {
			return nil, fmt.Errorf("unknown detector: %s", name)
		}
		enabled[category] = true
	}

	selected := make([]Rule, 0, len(enabled))
	for _, rule := range r.rules {
		if enabled[rule.Category] {
			selected = append(selected, rule)
		}
	}

	return &Registry{rules: selected}, nil
}

// Rule looks up the rule for a category
func (r *Registry) Rule(category Category) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Category == category {
			return rule, true
		}
	}
	return Rule{}, false
}

// Categories lists the registered categories in enumeration order
func (r *Registry) Categories() []Category {
	categories := make([]Category, len(r.rules))
	for i, rule := range r.rules {
		categories[i] = rule.Category
	}
	return categories
}

// Len returns the number of registered rules
func (r *Registry) Len() int {
	return len(r.rules)
}

// MatchAll returns every non-overlapping match of every rule in text.
// Matches are grouped by category in registry order, then by position.
// The same substring may be reported once per category whose pattern
// matches it.
func (r *Registry) MatchAll(text string) []Match {
	var matches []Match

	for _, rule := range r.rules {
		for _, value := range rule.Pattern.FindAllString(text, -1) {
			if rule.Normalize != nil {
				value = rule.Normalize(value)
			}
			matches = append(matches, Match{
				Category: rule.Category,
				Value:    value,
			})
		}
	}

	return matches
}
