package config

import (
	"fmt"
	"os"

	"github.com/iliyamo/school-event-seating/internal/model"
)

// AllocationConfig holds seat allocation policy.
type AllocationConfig struct {
	// SelfServiceMinRow is the front-most row public sign ups may receive.
	// Empty means the whole chart.
	SelfServiceMinRow string
}

// LoadAllocationConfig reads SELF_SERVICE_MIN_ROW (default "D").  Setting it
// to an empty string lifts the restriction.
func LoadAllocationConfig() (AllocationConfig, error) {
	raw, ok := os.LookupEnv("SELF_SERVICE_MIN_ROW")
	if !ok {
		raw = "D"
	}
	if raw == "" {
		return AllocationConfig{}, nil
	}
	row, valid := model.ParseRow(raw)
	if !valid {
		return AllocationConfig{}, fmt.Errorf("invalid SELF_SERVICE_MIN_ROW %q", raw)
	}
	return AllocationConfig{SelfServiceMinRow: row}, nil
}
