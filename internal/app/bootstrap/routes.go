// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	adminauditfeature "github.com/dalemusser/stratastore/internal/app/features/adminaudit"
	adminauthfeature "github.com/dalemusser/stratastore/internal/app/features/adminauth"
	adminordersfeature "github.com/dalemusser/stratastore/internal/app/features/adminorders"
	authgooglefeature "github.com/dalemusser/stratastore/internal/app/features/authgoogle"
	bundlesfeature "github.com/dalemusser/stratastore/internal/app/features/bundles"
	contactsettingsfeature "github.com/dalemusser/stratastore/internal/app/features/contactsettings"
	errorsfeature "github.com/dalemusser/stratastore/internal/app/features/errors"
	footerlinksfeature "github.com/dalemusser/stratastore/internal/app/features/footerlinks"
	healthfeature "github.com/dalemusser/stratastore/internal/app/features/health"
	heroslidesfeature "github.com/dalemusser/stratastore/internal/app/features/heroslides"
	productsfeature "github.com/dalemusser/stratastore/internal/app/features/products"
	purchasefeature "github.com/dalemusser/stratastore/internal/app/features/purchase"
	revalidatefeature "github.com/dalemusser/stratastore/internal/app/features/revalidate"
	sectionsfeature "github.com/dalemusser/stratastore/internal/app/features/sections"
	socialmediafeature "github.com/dalemusser/stratastore/internal/app/features/socialmedia"
	uploadsfeature "github.com/dalemusser/stratastore/internal/app/features/uploads"
	"github.com/dalemusser/stratastore/internal/app/store/audit"
	bundlestore "github.com/dalemusser/stratastore/internal/app/store/bundles"
	contactsettingsstore "github.com/dalemusser/stratastore/internal/app/store/contactsettings"
	contentstore "github.com/dalemusser/stratastore/internal/app/store/content"
	"github.com/dalemusser/stratastore/internal/app/store/oauthstate"
	orderstore "github.com/dalemusser/stratastore/internal/app/store/orders"
	productstore "github.com/dalemusser/stratastore/internal/app/store/products"
	"github.com/dalemusser/stratastore/internal/app/store/ratelimit"
	sectionstore "github.com/dalemusser/stratastore/internal/app/store/sections"
	userstore "github.com/dalemusser/stratastore/internal/app/store/users"
	"github.com/dalemusser/stratastore/internal/app/system/apicors"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/catalog"
	"github.com/dalemusser/stratastore/internal/app/system/furniture"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/purchase"
	"github.com/dalemusser/stratastore/internal/app/system/revalidate"
	"github.com/dalemusser/stratastore/internal/app/system/sectiontree"
	"github.com/dalemusser/stratastore/internal/app/system/treecache"
	"github.com/dalemusser/stratastore/internal/app/system/txn"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// csrfExemptPrefixes are called by buyers and the frontend build without an
// admin session, so there is no cookie for CSRF to protect.
var csrfExemptPrefixes = []string{
	"/api/purchase/",
	"/api/bundle-purchase/",
	"/api/revalidate/",
}

func csrfExempt(path string) bool {
	for _, p := range csrfExemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// BuildHandler constructs the root HTTP handler for the storefront API.
//
// Layout:
//   - public catalog reads and admin writes share /api/{sections,products,bundles}
//   - /api/purchase and /api/bundle-purchase run the buyer checkout
//   - /api/admin/* is admin-only back-office
//   - public storefront furniture is read at /api/{hero-slides,footer-links,...}
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Fresh user data on each request so role changes and disabled
	// accounts take effect immediately.
	users := userstore.New(db)
	sessionMgr.SetUserFetcher(users.Sessions(logger))

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler(errLog)

	auditStore := audit.New(db)
	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Admin:    appCfg.AuditLogAdmin,
		Purchase: appCfg.AuditLogPurchase,
	})

	// Stores and services.
	products := productstore.New(db)
	bundles := bundlestore.New(db)
	sections := sectionstore.New(db)
	orders := orderstore.New(db)

	treeOpts := []sectiontree.Option{
		sectiontree.WithTx(txn.Runner(db, logger)),
		sectiontree.WithLogger(logger),
	}
	if deps.Redis != nil {
		treeOpts = append(treeOpts, sectiontree.WithCache(treecache.New(deps.Redis,
			treecache.WithTTL(appCfg.SectionCacheTTL),
			treecache.WithLogger(logger))))
	}
	sectionMgr := sectiontree.NewManager(sections, products, bundles, treeOpts...)
	catalogSvc := catalog.New(products, bundles, sections)

	purchaseOpts := []purchase.Option{
		purchase.WithSecret(appCfg.RazorpayKeySecret),
		purchase.WithKeyID(deps.Gateway.KeyID()),
		purchase.WithCurrency(appCfg.PaymentCurrency),
		purchase.WithCodeTTL(appCfg.VerificationCodeTTL),
		purchase.WithLogger(logger),
	}
	if appCfg.VerifyEmailMaxAttempts > 0 {
		purchaseOpts = append(purchaseOpts, purchase.WithLimiter(ratelimit.New(db, ratelimit.ScopeVerifyEmail,
			appCfg.VerifyEmailMaxAttempts, appCfg.VerifyEmailWindow, appCfg.VerifyEmailLockout)))
	}
	purchaseSvc := purchase.New(orders, purchase.StoreCatalog{Products: products, Bundles: bundles},
		deps.Mailer, deps.Gateway, purchaseOpts...)

	var loginLimiter *ratelimit.Store
	if appCfg.RateLimitEnabled {
		loginLimiter = ratelimit.New(db, ratelimit.ScopeAdminLogin,
			appCfg.RateLimitLoginAttempts, appCfg.RateLimitLoginWindow, appCfg.RateLimitLoginLockout)
	}

	frontend := revalidate.New(appCfg.RevalidateURL, appCfg.RevalidateSecret, logger)

	publicCORS := apicors.Middleware()
	if len(appCfg.StorefrontOrigins) > 0 {
		publicCORS = apicors.MiddlewareWithOrigins(appCfg.StorefrontOrigins)
	}

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────
	// Global middleware
	// ─────────────────────────────────────────────────────────────────────────
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(sessionMgr.LoadSessionUser)

	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratastore_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(errorsHandler.CSRFFailure)),
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)
	r.Use(func(next http.Handler) http.Handler {
		protected := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if csrfExempt(req.URL.Path) {
				next.ServeHTTP(w, req)
				return
			}
			if !secure {
				req = csrf.PlaintextHTTPRequest(req)
			}
			protected.ServeHTTP(w, req)
		})
	})

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// ─────────────────────────────────────────────────────────────────────────
	// Health and static files
	// ─────────────────────────────────────────────────────────────────────────
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Admin sign-in
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/api/csrf", func(w http.ResponseWriter, req *http.Request) {
		jsonutil.OK(w, map[string]string{"csrfToken": csrf.Token(req)})
	})
	r.Mount("/api/auth", adminauthfeature.Routes(
		adminauthfeature.NewHandler(users, sessionMgr, loginLimiter, auditLogger, logger)))

	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
		googleHandler := authgooglefeature.NewHandler(users, sessionMgr, oauthstate.New(db), authgooglefeature.Config{
			ClientID:     appCfg.GoogleClientID,
			ClientSecret: appCfg.GoogleClientSecret,
			BaseURL:      appCfg.BaseURL,
			AdminURL:     appCfg.AdminURL,
		}, auditLogger, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog (public reads, admin writes)
	// ─────────────────────────────────────────────────────────────────────────
	r.Mount("/api/sections", sectionsfeature.Routes(sectionsfeature.NewHandler(sectionMgr, auditLogger, logger), sessionMgr))
	r.Mount("/api/products", productsfeature.Routes(productsfeature.NewHandler(catalogSvc, auditLogger, logger), sessionMgr))
	r.Mount("/api/bundles", bundlesfeature.Routes(bundlesfeature.NewHandler(catalogSvc, auditLogger, logger), sessionMgr))

	// ─────────────────────────────────────────────────────────────────────────
	// Checkout
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/purchase", func(sr chi.Router) {
		sr.Use(publicCORS)
		sr.Mount("/", purchasefeature.Routes(purchasefeature.NewHandler(purchaseSvc, models.ItemProduct, auditLogger, logger)))
	})
	r.Route("/api/bundle-purchase", func(sr chi.Router) {
		sr.Use(publicCORS)
		sr.Mount("/", purchasefeature.Routes(purchasefeature.NewHandler(purchaseSvc, models.ItemBundle, auditLogger, logger)))
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Storefront furniture
	// ─────────────────────────────────────────────────────────────────────────
	heroSlides := furniture.NewHandler(heroslidesfeature.Resource(contentstore.NewHeroSlides(db)), auditLogger, logger)
	footerLinks := furniture.NewHandler(footerlinksfeature.Resource(contentstore.NewFooterLinks(db)), auditLogger, logger)
	socialMedia := furniture.NewHandler(socialmediafeature.Resource(contentstore.NewSocialMedia(db)), auditLogger, logger)
	contact := contactsettingsfeature.NewHandler(contactsettingsstore.New(db), auditLogger, logger)

	r.Group(func(pr chi.Router) {
		pr.Use(publicCORS)
		pr.Mount("/api/hero-slides", furniture.PublicRoutes(heroSlides))
		pr.Mount("/api/footer-links", furniture.PublicRoutes(footerLinks))
		pr.Mount("/api/social-media", furniture.PublicRoutes(socialMedia))
		pr.Mount("/api/contact-settings", contactsettingsfeature.PublicRoutes(contact))
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Back-office
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Mount("/hero-slides", furniture.AdminRoutes(heroSlides, sessionMgr))
		ar.Mount("/footer-links", furniture.AdminRoutes(footerLinks, sessionMgr))
		ar.Mount("/social-media", furniture.AdminRoutes(socialMedia, sessionMgr))
		ar.Mount("/contact-settings", contactsettingsfeature.AdminRoutes(contact, sessionMgr))
		ar.Mount("/orders", adminordersfeature.Routes(adminordersfeature.NewHandler(orders, purchaseSvc, auditLogger, logger), sessionMgr))
		ar.Mount("/uploads", uploadsfeature.Routes(uploadsfeature.NewHandler(deps.FileStorage, auditLogger, logger), sessionMgr))
		ar.Mount("/audit", adminauditfeature.Routes(adminauditfeature.NewHandler(auditStore, logger), sessionMgr))
	})

	r.Route("/api/revalidate", func(sr chi.Router) {
		if len(appCfg.StorefrontOrigins) > 0 {
			sr.Use(apicors.MiddlewareWithOrigins(appCfg.StorefrontOrigins, revalidate.SecretHeader))
		} else {
			sr.Use(apicors.Middleware(revalidate.SecretHeader))
		}
		sr.Mount("/", revalidatefeature.Routes(revalidatefeature.NewHandler(sectionMgr, frontend, auditLogger, logger)))
	})

	if appCfg.TracingEnabled {
		logger.Info("OpenTelemetry HTTP instrumentation enabled")
		return otelhttp.NewHandler(r, "stratastore"), nil
	}
	return r, nil
}
