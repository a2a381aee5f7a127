package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// Config holds all application configuration, including secrets, flags, etc.
type Config struct {
	OrganizationName   string
	AppName            string
	AppPort            string
	AppUrl             string
	DBUrl              string
	DBEncryptionKey    []byte
	JWTSecret          []byte
	UniqueRunNumber    string
	UniqueRunnerID     string
	TwilioAccountSID   string
	TwilioAuthToken    string
	SendGridAPIKey     string
	ReviewURL          string
	DefaultCountryCode string
	SeedAdminEmail     string
	SeedAdminPassword  string

	OTPExpiry            time.Duration
	RatingTokenTTL       time.Duration
	RatingDelay          time.Duration
	RatingLookback       time.Duration
	RatingBatchSize      int
	OutboxBatchSize      int
	OutboxStaleAfter     time.Duration
	DeliveredRetention   time.Duration
	RatingTokenRetention time.Duration

	SMSLimitPerIPPerHour     int
	SMSLimitPerNumberPerHour int
	GlobalSMSLimitPerHour    int
	VerifyLimitPerIPPerHour  int
	VerifyLimitPerPhone      int
	RateLimitWindow          time.Duration

	OTPMaxVerifyAttempts int
	CustomerSessionTTL   time.Duration

	// Static flags fetched once from LaunchDarkly (or the env fallback)
	LDFlag_SendgridFromEmail       string
	LDFlag_TwilioFromPhone         string
	LDFlag_SendgridSandboxMode     bool
	LDFlag_ShortTokenTTL           bool
	LDFlag_AcceptFakePhones        bool
	LDFlag_ValidatePhoneWithTwilio bool
	LDFlag_UsingIsolatedSchema     bool
	LDFlag_CORSHighSecurity        bool
}

const (
	OrganizationName = utils.OrganizationName

	OTPMin                      = 1000
	OTPMax                      = 9999
	DefaultOTPExpiry            = 5 * time.Minute
	TestShortOTPExpiry          = 3 * time.Second
	DefaultRatingTokenTTL       = 14 * 24 * time.Hour
	DefaultRatingDelay          = 2 * time.Hour
	DefaultRatingLookback       = 7 * 24 * time.Hour
	DefaultRatingBatchSize      = 200
	DefaultOutboxBatchSize      = 50
	DefaultOutboxStaleAfter     = 10 * time.Minute
	DefaultDeliveredRetention   = 24 * time.Hour
	DefaultRatingTokenRetention = 30 * 24 * time.Hour

	OTPMaxAttempts    = 1
	RatingMaxAttempts = 3

	// Wrong guesses a single code survives before it is deleted.
	DefaultOTPMaxVerifyAttempts = 5
	DefaultCustomerSessionTTL   = 15 * time.Minute

	DefaultSMSLimitPerIPPerHour     = 20
	DefaultSMSLimitPerNumberPerHour = 5
	DefaultGlobalSMSLimitPerHour    = 1000
	DefaultVerifyLimitPerIPPerHour  = 30
	DefaultVerifyLimitPerPhone      = 10
	DefaultRateLimitWindow          = 1 * time.Hour
	TestShortGlobalSMSLimit         = 50

	RatingSweepSchedule = "0 * * * *"
	DispatchSchedule    = "@every 1m"
	CleanupSchedule     = "0 3 * * *"

	LDConnectionTimeout = 5 * time.Second
)

// Build-time overrides, set with -ldflags.
var (
	AppName             = "waiver-service"
	UniqueRunNumber     string
	UniqueRunnerID      string
	LDServerContextKey  = "waiver-service"
	LDServerContextKind = "service"
)

// LoadConfig loads .env (when present) and the environment, fetches the
// static flags and returns the configuration. Missing required values are
// fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err == nil {
		utils.Logger.Debug("Loaded .env file")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	var flags FlagSource
	if ldKey := os.Getenv("LD_SDK_KEY"); ldKey != "" {
		ldFlags, err := NewLDFlagSource(ldKey)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
		}
		defer ldFlags.Close()
		flags = ldFlags
	} else {
		utils.Logger.Info("LD_SDK_KEY not set; reading static flags from the environment")
		flags = EnvFlagSource{Getenv: os.Getenv}
	}

	cfg, err := Load(os.Getenv, flags)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Invalid configuration")
	}

	utils.Logger.Infof("Loaded config for %s on :%s", cfg.AppName, cfg.AppPort)
	return cfg
}

// Load builds a Config from getenv and flags.
func Load(getenv func(string) string, flags FlagSource) (*Config, error) {
	//----------------------------------------------------------------------
	// Required environment variables
	//----------------------------------------------------------------------
	required := map[string]string{}
	for _, key := range []string{"APP_PORT", "APP_URL", "DB_URL", "JWT_SECRET", "DB_ENCRYPTION_KEY_BASE64"} {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil, fmt.Errorf("%s env var is missing", key)
		}
		required[key] = v
	}

	decodedKey, err := base64.StdEncoding.DecodeString(required["DB_ENCRYPTION_KEY_BASE64"])
	if err != nil {
		return nil, fmt.Errorf("failed to decode DB_ENCRYPTION_KEY_BASE64: %w", err)
	}
	if len(decodedKey) != 32 {
		return nil, fmt.Errorf("DB_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(decodedKey))
	}
	if len(required["JWT_SECRET"]) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	orgName := getenv("ORGANIZATION_NAME")
	if orgName == "" {
		orgName = OrganizationName
	}
	countryCode := strings.TrimPrefix(getenv("DEFAULT_COUNTRY_CODE"), "+")
	if countryCode == "" {
		countryCode = utils.DefaultCountryCode
	}

	//----------------------------------------------------------------------
	// Static flags
	//----------------------------------------------------------------------
	cfg := &Config{
		OrganizationName:   orgName,
		AppName:            AppName,
		AppPort:            required["APP_PORT"],
		AppUrl:             strings.TrimRight(required["APP_URL"], "/"),
		DBUrl:              required["DB_URL"],
		DBEncryptionKey:    decodedKey,
		JWTSecret:          []byte(required["JWT_SECRET"]),
		UniqueRunNumber:    UniqueRunNumber,
		UniqueRunnerID:     UniqueRunnerID,
		TwilioAccountSID:   getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    getenv("TWILIO_AUTH_TOKEN"),
		SendGridAPIKey:     getenv("SENDGRID_API_KEY"),
		ReviewURL:          getenv("REVIEW_URL"),
		DefaultCountryCode: countryCode,
		SeedAdminEmail:     getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:  getenv("SEED_ADMIN_PASSWORD"),

		OTPExpiry:            DefaultOTPExpiry,
		RatingTokenTTL:       DefaultRatingTokenTTL,
		RatingDelay:          DefaultRatingDelay,
		RatingLookback:       DefaultRatingLookback,
		RatingBatchSize:      DefaultRatingBatchSize,
		OutboxBatchSize:      DefaultOutboxBatchSize,
		OutboxStaleAfter:     DefaultOutboxStaleAfter,
		DeliveredRetention:   DefaultDeliveredRetention,
		RatingTokenRetention: DefaultRatingTokenRetention,

		SMSLimitPerIPPerHour:     DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour: DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:    DefaultGlobalSMSLimitPerHour,
		VerifyLimitPerIPPerHour:  DefaultVerifyLimitPerIPPerHour,
		VerifyLimitPerPhone:      DefaultVerifyLimitPerPhone,
		RateLimitWindow:          DefaultRateLimitWindow,

		OTPMaxVerifyAttempts: DefaultOTPMaxVerifyAttempts,
		CustomerSessionTTL:   DefaultCustomerSessionTTL,
	}

	if cfg.LDFlag_SendgridFromEmail, err = flags.String("sendgrid_from_email", getenv("SENDGRID_FROM_EMAIL")); err != nil {
		return nil, err
	}
	if cfg.LDFlag_TwilioFromPhone, err = flags.String("twilio_from_phone", getenv("TWILIO_FROM_PHONE")); err != nil {
		return nil, err
	}
	boolFlags := []struct {
		key string
		dst *bool
	}{
		{"sendgrid_sandbox_mode", &cfg.LDFlag_SendgridSandboxMode},
		{"short_token_ttl", &cfg.LDFlag_ShortTokenTTL},
		{"accept_fake_phones", &cfg.LDFlag_AcceptFakePhones},
		{"validate_phone_with_twilio", &cfg.LDFlag_ValidatePhoneWithTwilio},
		{"using_isolated_schema", &cfg.LDFlag_UsingIsolatedSchema},
		{"cors_high_security", &cfg.LDFlag_CORSHighSecurity},
	}
	for _, f := range boolFlags {
		if *f.dst, err = flags.Bool(f.key); err != nil {
			return nil, err
		}
		utils.Logger.Debugf("%s flag: %t", f.key, *f.dst)
	}

	if cfg.LDFlag_ShortTokenTTL {
		cfg.OTPExpiry = TestShortOTPExpiry
		cfg.GlobalSMSLimitPerHour = TestShortGlobalSMSLimit
	}
	if cfg.LDFlag_UsingIsolatedSchema && (cfg.UniqueRunnerID == "" || cfg.UniqueRunNumber == "") {
		return nil, fmt.Errorf("using_isolated_schema requires UniqueRunnerID and UniqueRunNumber ldflags")
	}

	return cfg, nil
}

// SMSEnabled reports whether Twilio credentials are configured.
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.LDFlag_TwilioFromPhone != ""
}

// EmailEnabled reports whether SendGrid is configured.
func (c *Config) EmailEnabled() bool {
	return c.SendGridAPIKey != "" && c.LDFlag_SendgridFromEmail != ""
}

// IsolatedRole is the database role used when each run owns a schema.
func (c *Config) IsolatedRole() string {
	return strings.ToLower(c.UniqueRunnerID + "-" + c.UniqueRunNumber)
}

//----------------------------------------------------------------------
// Flag sources
//----------------------------------------------------------------------

// FlagSource resolves static feature flags.
type FlagSource interface {
	String(key, fallback string) (string, error)
	Bool(key string) (bool, error)
}

// LDFlagSource reads flags from LaunchDarkly for the service context.
type LDFlagSource struct {
	client *ld.LDClient
	ctx    ldcontext.Context
}

func NewLDFlagSource(sdkKey string) (*LDFlagSource, error) {
	client, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		return nil, err
	}
	if !client.Initialized() {
		client.Close()
		return nil, fmt.Errorf("LaunchDarkly client failed to initialize")
	}
	return &LDFlagSource{
		client: client,
		ctx:    ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey),
	}, nil
}

func (s *LDFlagSource) String(key, fallback string) (string, error) {
	v, err := s.client.StringVariation(key, s.ctx, fallback)
	if err != nil {
		return "", fmt.Errorf("error retrieving %s flag: %w", key, err)
	}
	return v, nil
}

func (s *LDFlagSource) Bool(key string) (bool, error) {
	v, err := s.client.BoolVariation(key, s.ctx, false)
	if err != nil {
		return false, fmt.Errorf("error retrieving %s flag: %w", key, err)
	}
	return v, nil
}

func (s *LDFlagSource) Close() {
	_ = s.client.Close()
}

// EnvFlagSource reads a flag from the upper-cased env var of the same name.
type EnvFlagSource struct {
	Getenv func(string) string
}

func (s EnvFlagSource) String(key, fallback string) (string, error) {
	if v := s.Getenv(strings.ToUpper(key)); v != "" {
		return v, nil
	}
	return fallback, nil
}

func (s EnvFlagSource) Bool(key string) (bool, error) {
	raw := s.Getenv(strings.ToUpper(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %q", strings.ToUpper(key), raw)
	}
	return v, nil
}
