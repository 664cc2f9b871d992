// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/mailer"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATASTORE"

// minKeyLength is the shortest session or CSRF key accepted outside dev.
const minKeyLength = 32

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATASTORE_MONGO_URI, STRATASTORE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratastore", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Admin sessions
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratastore-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},
	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Admin login rate limiting
	{Name: "rate_limit_enabled", Default: true, Desc: "Enable rate limiting for admin login attempts"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed login attempts before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed attempts"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	// File storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Email
	{Name: "mail_transport", Default: "smtp", Desc: "Mail transport: 'smtp' or 'sendgrid'"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key (mail_transport=sendgrid)"},
	{Name: "mail_from", Default: "orders@example.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "StrataStore", Desc: "From display name and store name in emails"},

	// Payment gateway
	{Name: "razorpay_key_id", Default: "", Desc: "Razorpay key id (public, returned to the checkout widget)"},
	{Name: "razorpay_key_secret", Default: "", Desc: "Razorpay key secret (order creation and signature checks)"},
	{Name: "payment_currency", Default: "INR", Desc: "Currency for gateway orders"},

	// Buyer verification
	{Name: "verification_code_ttl", Default: "10m", Desc: "How long a checkout verification code is valid"},
	{Name: "verify_email_max_attempts", Default: 5, Desc: "Verification codes per email per window"},
	{Name: "verify_email_window", Default: "15m", Desc: "Window for counting verification requests"},
	{Name: "verify_email_lockout", Default: "15m", Desc: "Lockout after too many verification requests"},

	// Section tree cache
	{Name: "redis_url", Default: "", Desc: "Redis URL for the section tree cache (empty disables it)"},
	{Name: "section_cache_ttl", Default: "10m", Desc: "Section tree cache TTL"},

	// Frontend revalidation
	{Name: "revalidate_url", Default: "", Desc: "Frontend on-demand revalidation endpoint (empty disables forwarding)"},
	{Name: "revalidate_secret", Default: "", Desc: "Shared secret for the revalidation webhook"},

	{Name: "storefront_origins", Default: "", Desc: "Comma-separated storefront origins for CORS on public endpoints (empty allows any)"},
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public URL of this API"},
	{Name: "admin_url", Default: "http://localhost:3000/admin", Desc: "Admin UI URL to return to after Google sign-in"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Admin seeding configuration
	{Name: "seed_admin_email", Default: "", Desc: "Email of admin user to create on startup"},
	{Name: "seed_admin_password", Default: "", Desc: "Password for the seeded admin user"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_purchase", Default: "all", Desc: "Purchase event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "tracing_enabled", Default: false, Desc: "Wrap HTTP handler and clients with OpenTelemetry"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),
		CSRFKey:       appValues.String("csrf_key"),

		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),

		StorageType:        appValues.String("storage_type"),
		StorageLocalPath:   appValues.String("storage_local_path"),
		StorageLocalURL:    appValues.String("storage_local_url"),
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		MailTransport:  strings.ToLower(appValues.String("mail_transport")),
		MailSMTPHost:   appValues.String("mail_smtp_host"),
		MailSMTPPort:   appValues.Int("mail_smtp_port"),
		MailSMTPUser:   appValues.String("mail_smtp_user"),
		MailSMTPPass:   appValues.String("mail_smtp_pass"),
		SendGridAPIKey: appValues.String("sendgrid_api_key"),
		MailFrom:       appValues.String("mail_from"),
		MailFromName:   appValues.String("mail_from_name"),

		RazorpayKeyID:     appValues.String("razorpay_key_id"),
		RazorpayKeySecret: appValues.String("razorpay_key_secret"),
		PaymentCurrency:   strings.ToUpper(appValues.String("payment_currency")),

		VerificationCodeTTL:    appValues.Duration("verification_code_ttl", 10*time.Minute),
		VerifyEmailMaxAttempts: appValues.Int("verify_email_max_attempts"),
		VerifyEmailWindow:      appValues.Duration("verify_email_window", 15*time.Minute),
		VerifyEmailLockout:     appValues.Duration("verify_email_lockout", 15*time.Minute),

		RedisURL:        appValues.String("redis_url"),
		SectionCacheTTL: appValues.Duration("section_cache_ttl", 10*time.Minute),

		RevalidateURL:    appValues.String("revalidate_url"),
		RevalidateSecret: appValues.String("revalidate_secret"),

		StorefrontOrigins: splitList(appValues.String("storefront_origins")),
		BaseURL:           appValues.String("base_url"),
		AdminURL:          appValues.String("admin_url"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminPassword: appValues.String("seed_admin_password"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogPurchase: appValues.String("audit_log_purchase"),

		TracingEnabled: appValues.Bool("tracing_enabled"),
	}

	return coreCfg, appCfg, nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// A missing payment secret is deliberately not an error: checkout refuses
// to open gateway orders and signatures never verify.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	var errs []error
	if coreCfg.Env != "dev" {
		if len(appCfg.SessionKey) < minKeyLength {
			errs = append(errs, fmt.Errorf("session_key must be at least %d characters", minKeyLength))
		}
		if len(appCfg.CSRFKey) < minKeyLength {
			errs = append(errs, fmt.Errorf("csrf_key must be at least %d characters", minKeyLength))
		}
	}

	switch appCfg.StorageType {
	case "", "local":
		if appCfg.StorageLocalPath == "" {
			errs = append(errs, errors.New("storage_local_path is required for local storage"))
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			errs = append(errs, errors.New("storage_s3_bucket and storage_s3_region are required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage_type %q", appCfg.StorageType))
	}

	switch appCfg.MailTransport {
	case "", mailer.TransportSMTP:
		if appCfg.MailSMTPHost == "" {
			errs = append(errs, errors.New("mail_smtp_host is required for smtp transport"))
		}
	case mailer.TransportSendGrid:
		if appCfg.SendGridAPIKey == "" {
			errs = append(errs, errors.New("sendgrid_api_key is required for sendgrid transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail_transport %q", appCfg.MailTransport))
	}

	if appCfg.RazorpayKeySecret == "" {
		logger.Warn("razorpay_key_secret not set; checkout is disabled")
	}
	if appCfg.RevalidateSecret == "" {
		logger.Warn("revalidate_secret not set; revalidation requires an admin session")
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}
