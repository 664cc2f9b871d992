// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	contactsettingsstore "github.com/dalemusser/stratastore/internal/app/store/contactsettings"
	contentstore "github.com/dalemusser/stratastore/internal/app/store/content"
	userstore "github.com/dalemusser/stratastore/internal/app/store/users"
	"github.com/dalemusser/stratastore/internal/app/system/authutil"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults is the seed data shipped with the binary.
type Defaults struct {
	HeroSlides  []models.HeroSlide     `yaml:"hero_slides"`
	FooterLinks []models.FooterLink    `yaml:"footer_links"`
	SocialMedia []models.SocialMedia   `yaml:"social_media"`
	Contact     models.ContactSettings `yaml:"contact"`
}

// Load parses the embedded defaults and stamps every item with now.
func Load(now time.Time) (Defaults, error) {
	return parse(defaultsYAML, now)
}

func parse(raw []byte, now time.Time) (Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse seed defaults: %w", err)
	}
	for i := range d.HeroSlides {
		d.HeroSlides[i].CreatedAt, d.HeroSlides[i].UpdatedAt = now, now
	}
	for i := range d.FooterLinks {
		d.FooterLinks[i].CreatedAt, d.FooterLinks[i].UpdatedAt = now, now
	}
	for i := range d.SocialMedia {
		d.SocialMedia[i].CreatedAt, d.SocialMedia[i].UpdatedAt = now, now
	}
	d.Contact.UpdatedAt = now
	return d, nil
}

// AdminSeed names the administrator created on first start. Either field
// empty disables it.
type AdminSeed struct {
	Email    string
	Password string
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, logger *zap.Logger, admin AdminSeed) error {
	d, err := Load(time.Now())
	if err != nil {
		return err
	}

	n, err := contentstore.NewHeroSlides(db).Seed(ctx, d.HeroSlides)
	if err != nil {
		return fmt.Errorf("seed hero slides: %w", err)
	}
	logSeeded(logger, contentstore.HeroSlides, n)

	n, err = contentstore.NewFooterLinks(db).Seed(ctx, d.FooterLinks)
	if err != nil {
		return fmt.Errorf("seed footer links: %w", err)
	}
	logSeeded(logger, contentstore.FooterLinks, n)

	n, err = contentstore.NewSocialMedia(db).Seed(ctx, d.SocialMedia)
	if err != nil {
		return fmt.Errorf("seed social media: %w", err)
	}
	logSeeded(logger, contentstore.SocialMedia, n)

	if err := seedContact(ctx, db, logger, d.Contact); err != nil {
		return err
	}
	return seedAdmin(ctx, db, logger, admin)
}

func logSeeded(logger *zap.Logger, coll string, n int) {
	if n > 0 {
		logger.Info("seeded defaults", zap.String("collection", coll), zap.Int("count", n))
	}
}

func seedContact(ctx context.Context, db *mongo.Database, logger *zap.Logger, cs models.ContactSettings) error {
	store := contactsettingsstore.New(db)
	exists, err := store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check contact settings: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := store.Save(ctx, cs); err != nil {
		return fmt.Errorf("seed contact settings: %w", err)
	}
	logger.Info("seeded default contact settings")
	return nil
}

// seedAdmin creates the configured admin once. An existing account with the
// same email is never modified.
func seedAdmin(ctx context.Context, db *mongo.Database, logger *zap.Logger, admin AdminSeed) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}

	users := userstore.New(db)
	exists, err := users.Exists(ctx, admin.Email)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if exists {
		return nil
	}

	if err := authutil.ValidatePassword(admin.Password); err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}
	hash, err := authutil.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	u, err := users.Create(ctx, models.User{
		FullName:     "Administrator",
		Email:        admin.Email,
		AuthMethod:   models.AuthPassword,
		PasswordHash: &hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("seeded admin user", zap.String("user_id", u.ID.Hex()), zap.String("email", u.Email))
	return nil
}
