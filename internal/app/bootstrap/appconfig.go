// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from environment variables (STRATASTORE_*), config files, or
// command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig covers the
// framework side (ports, TLS, log level, CORS, body limits); everything the
// storefront itself needs lives here and is handed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Admin session configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratastore-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// CSRF protection for cookie-authenticated admin writes
	CSRFKey string

	// Admin login rate limiting
	RateLimitEnabled       bool
	RateLimitLoginAttempts int           // Max failed login attempts before lockout (default: 5)
	RateLimitLoginWindow   time.Duration // Window for counting failed attempts (default: 15m)
	RateLimitLoginLockout  time.Duration // Lockout after exceeding the limit (default: 15m)

	// File storage for uploaded images and deliverable files
	StorageType      string // "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string

	// Email delivery (verification codes and purchased files)
	MailTransport  string // "smtp" or "sendgrid"
	MailSMTPHost   string
	MailSMTPPort   int
	MailSMTPUser   string
	MailSMTPPass   string
	SendGridAPIKey string
	MailFrom       string // From email address (e.g., orders@example.com)
	MailFromName   string // From display name, also used as the store name in emails

	// Payment gateway
	RazorpayKeyID     string
	RazorpayKeySecret string // empty disables checkout; purchases fail closed
	PaymentCurrency   string // ISO currency code (default: INR)

	// Buyer email verification
	VerificationCodeTTL    time.Duration // How long a checkout code stays valid (default: 10m)
	VerifyEmailMaxAttempts int           // Codes per email per window (default: 5)
	VerifyEmailWindow      time.Duration // default: 15m
	VerifyEmailLockout     time.Duration // default: 15m

	// Section tree cache (empty RedisURL disables it)
	RedisURL        string
	SectionCacheTTL time.Duration

	// Frontend on-demand revalidation hook
	RevalidateURL    string
	RevalidateSecret string

	// Public storefront origins allowed to call the read-only API from a browser.
	// Empty allows any origin.
	StorefrontOrigins []string

	// Public URL of this API, used for the Google OAuth callback.
	BaseURL string
	// Admin UI landing page after Google sign-in.
	AdminURL string

	// Google OAuth configuration (both set enables Google sign-in for admins)
	GoogleClientID     string
	GoogleClientSecret string

	// Admin seeding configuration
	SeedAdminEmail    string
	SeedAdminPassword string

	// Audit logging: "all" (MongoDB + zap), "db", "log", or "off"
	AuditLogAuth     string // Admin sign-in and sign-out
	AuditLogAdmin    string // Content changes, order resends, revalidation
	AuditLogPurchase string // Payment callbacks and delivery failures

	// Wrap the handler and outbound HTTP clients with OpenTelemetry.
	TracingEnabled bool
}
