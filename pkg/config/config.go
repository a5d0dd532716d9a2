package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Policy holds the financial policy constants of the group. Values come
// from the environment so a deployment can tune them without a rebuild.
type Policy struct {
	// LoanMaxMultiplier caps a member's loan principal at this multiple of
	// their paid-in contributions.
	LoanMaxMultiplier decimal.Decimal
	// GuarantorMaxMultiplier caps a member's total guarantee exposure at
	// this multiple of their paid-in contributions.
	GuarantorMaxMultiplier decimal.Decimal
	// DefaultLoanTermMonths is the expected term for regular member loans
	// when the application does not specify one.
	DefaultLoanTermMonths int
	// ContributionLoanTermMonths is the repayment horizon for loans created
	// from contribution defaults.
	ContributionLoanTermMonths int
}

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string
	PostHogAPIKey     string
	PostHogEndpoint   string
	Policy            Policy
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "table-banking-app")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://app.posthog.com")
	viper.SetDefault("LOAN_MAX_MULTIPLIER", "3")
	viper.SetDefault("GUARANTOR_MAX_MULTIPLIER", "3")
	viper.SetDefault("DEFAULT_LOAN_TERM_MONTHS", 12)
	viper.SetDefault("CONTRIBUTION_LOAN_TERM_MONTHS", 12)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiry, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiry = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiry)
	}
	cfg.JWTExpiryDuration = jwtExpiry
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.PostHogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PostHogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	cfg.Policy = Policy{
		LoanMaxMultiplier:          mustDecimal(viper.GetString("LOAN_MAX_MULTIPLIER"), "3"),
		GuarantorMaxMultiplier:     mustDecimal(viper.GetString("GUARANTOR_MAX_MULTIPLIER"), "3"),
		DefaultLoanTermMonths:      viper.GetInt("DEFAULT_LOAN_TERM_MONTHS"),
		ContributionLoanTermMonths: viper.GetInt("CONTRIBUTION_LOAN_TERM_MONTHS"),
	}

	return cfg, nil
}

// mustDecimal parses a decimal setting, falling back to the default on a
// bad value.
func mustDecimal(value, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Printf("Warning: invalid decimal setting '%s', using %s\n", value, fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}
