// Package checks holds the detectors shipped with symbex.
package checks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dhamidi/symbex/se"
)

// ErrUnknownCheck is returned when a configuration names a rule that no
// detector implements.
var ErrUnknownCheck = errors.New("unknown check")

// Factory creates fresh detector instances. Detectors keep per-method
// state, so every exploration gets its own.
type Factory struct {
	Key     string
	Name    string
	Aliases []string
	New     func() se.Detector
}

func All() []Factory {
	return []Factory{
		{Key: "S2689", Name: "ObjectOutputStreamAppend", New: NewObjectOutputStreamAppend},
		{Key: "S2259", Name: "NullDereference", New: NewNullDereference},
		{Key: "S2583", Name: "GratuitousCondition", Aliases: []string{"S2589"}, New: NewGratuitousCondition},
		{Key: "AvoidLoggingPasswords", Name: "AvoidLoggingPasswordsRule", New: NewAvoidLoggingPasswords},
	}
}

func (f Factory) matches(key string) bool {
	if strings.EqualFold(key, f.Key) || strings.EqualFold(key, f.Name) {
		return true
	}
	for _, alias := range f.Aliases {
		if strings.EqualFold(key, alias) {
			return true
		}
	}
	return false
}

// Select returns the factories for keys, which may be rule keys or
// detector names. No keys selects every detector.
func Select(keys []string) ([]Factory, error) {
	all := All()
	if len(keys) == 0 {
		return all, nil
	}
	var selected []Factory
	seen := make(map[string]bool)
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		found := false
		for _, f := range all {
			if !f.matches(key) {
				continue
			}
			found = true
			if !seen[f.Key] {
				seen[f.Key] = true
				selected = append(selected, f)
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, key)
		}
	}
	return selected, nil
}

// Instantiate creates one detector per factory.
func Instantiate(factories []Factory) []se.Detector {
	detectors := make([]se.Detector, len(factories))
	for i, f := range factories {
		detectors[i] = f.New()
	}
	return detectors
}
