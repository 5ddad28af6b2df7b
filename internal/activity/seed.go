package activity

import (
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// ReadSeed decodes a JSON array of activities and validates each one.
func ReadSeed(r io.Reader) ([]Activity, error) {
	var activities []Activity
	if err := json.NewDecoder(r).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}

	seen := make(map[string]struct{}, len(activities))
	var errs []error
	for i, a := range activities {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("activity %d (%s): %w", i, a.ID, err))
			continue
		}
		if _, dup := seen[a.ID]; dup {
			errs = append(errs, fmt.Errorf("activity %d: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = struct{}{}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return activities, nil
}

// LoadSeedFile reads activities from a JSON file.
func LoadSeedFile(path string) ([]Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	return ReadSeed(f)
}
