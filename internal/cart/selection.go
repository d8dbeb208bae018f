package cart

import (
	"errors"
	"fmt"

	"tabletap/internal/domain"
)

var (
	ErrUnknownGroup     = errors.New("option group does not belong to this item")
	ErrUnknownOption    = errors.New("option does not belong to this group")
	ErrTooManySelected  = errors.New("selection exceeds the group maximum")
	ErrSelectionMissing = errors.New("required option group has no selection")
)

// Selection builds a valid option configuration for one menu item.
// Single-choice groups replace the prior pick; multi-choice groups
// toggle options up to the group maximum.
type Selection struct {
	item   domain.MenuItem
	chosen map[string][]domain.Option
}

func NewSelection(item domain.MenuItem) *Selection {
	return &Selection{item: item, chosen: make(map[string][]domain.Option)}
}

func (s *Selection) group(groupID string) (domain.OptionGroup, error) {
	for _, group := range s.item.CustomizationGroups {
		if group.ID == groupID {
			return group, nil
		}
	}
	return domain.OptionGroup{}, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
}

// Choose selects an option. In a single-choice group a second pick
// replaces the first; picking the already-selected option deselects it
// when the group is optional.
func (s *Selection) Choose(groupID, optionID string) error {
	group, err := s.group(groupID)
	if err != nil {
		return err
	}

	var option *domain.Option
	for i := range group.Options {
		if group.Options[i].ID == optionID {
			option = &group.Options[i]
			break
		}
	}
	if option == nil {
		return fmt.Errorf("%w: %s", ErrUnknownOption, optionID)
	}

	current := s.chosen[groupID]

	if group.Mode == domain.SingleChoice {
		if len(current) == 1 && current[0].ID == optionID && !group.Required() {
			delete(s.chosen, groupID)
			return nil
		}
		s.chosen[groupID] = []domain.Option{*option}
		return nil
	}

	for i, picked := range current {
		if picked.ID == optionID {
			s.chosen[groupID] = append(current[:i], current[i+1:]...)
			if len(s.chosen[groupID]) == 0 {
				delete(s.chosen, groupID)
			}
			return nil
		}
	}
	if group.MaxSelection > 0 && len(current) >= group.MaxSelection {
		return fmt.Errorf("%w: %s allows %d", ErrTooManySelected, group.Name, group.MaxSelection)
	}
	s.chosen[groupID] = append(current, *option)
	return nil
}

// Options returns the configuration for Engine.Add. Validation happens
// there; this is just the current state.
func (s *Selection) Options() map[string][]domain.Option {
	out := make(map[string][]domain.Option, len(s.chosen))
	for groupID, options := range s.chosen {
		copied := make([]domain.Option, len(options))
		copy(copied, options)
		out[groupID] = copied
	}
	return out
}

// ValidateSelection checks a configuration against the item's groups:
// every group's selected count must sit within [min, max] and every
// referenced group and option must belong to the item.
func ValidateSelection(item domain.MenuItem, selected map[string][]domain.Option) error {
	groups := make(map[string]domain.OptionGroup, len(item.CustomizationGroups))
	for _, group := range item.CustomizationGroups {
		groups[group.ID] = group
	}

	for groupID, options := range selected {
		group, ok := groups[groupID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
		}
		known := make(map[string]bool, len(group.Options))
		for _, option := range group.Options {
			known[option.ID] = true
		}
		for _, option := range options {
			if !known[option.ID] {
				return fmt.Errorf("%w: %s in %s", ErrUnknownOption, option.ID, group.Name)
			}
		}
		if group.MaxSelection > 0 && len(options) > group.MaxSelection {
			return fmt.Errorf("%w: %s allows %d", ErrTooManySelected, group.Name, group.MaxSelection)
		}
	}

	for _, group := range item.CustomizationGroups {
		if len(selected[group.ID]) < group.MinSelection {
			return fmt.Errorf("%w: %s needs %d", ErrSelectionMissing, group.Name, group.MinSelection)
		}
	}
	return nil
}
