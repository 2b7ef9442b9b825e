package forecast

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Default forecast parameters
const (
	DefaultLookbackDays     = 90
	DefaultLeadTimeDays     = 7
	DefaultSafetyMultiplier = 1.5
	DefaultFloor            = 10

	// RecentWindowDays is the window used for the seasonal candidate
	RecentWindowDays = 30
)

// Config holds the tunable parameters of a reorder-point calculation
type Config struct {
	LookbackDays     int     `json:"lookback_days" mapstructure:"lookback_days" validate:"gte=1"`
	LeadTimeDays     int     `json:"lead_time_days" mapstructure:"lead_time_days" validate:"gte=1"`
	SafetyMultiplier float64 `json:"safety_multiplier" mapstructure:"safety_multiplier" validate:"gt=0"`
	Floor            int64   `json:"floor" mapstructure:"floor" validate:"gte=0"`
	Seasonal         bool    `json:"seasonal" mapstructure:"seasonal"`
}

// DefaultConfig returns the standard forecast configuration
func DefaultConfig() Config {
	return Config{
		LookbackDays:     DefaultLookbackDays,
		LeadTimeDays:     DefaultLeadTimeDays,
		SafetyMultiplier: DefaultSafetyMultiplier,
		Floor:            DefaultFloor,
		Seasonal:         true,
	}
}

var validate = validator.New()

// Validate checks the configuration bounds
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapDomainError(shared.CodeInvalidInput, "invalid forecast config", err)
	}
	return nil
}

// Key returns a stable fingerprint of the configuration, used for cache keys
func (c Config) Key() string {
	raw := fmt.Sprintf("%d|%d|%g|%d|%t", c.LookbackDays, c.LeadTimeDays, c.SafetyMultiplier, c.Floor, c.Seasonal)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:8])
}
