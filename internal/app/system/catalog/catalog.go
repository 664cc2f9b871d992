// Package catalog applies the storefront rules for products and bundles on
// top of their stores: prices must be sane, sections must exist and be
// active, bundles must reference existing products, and a product cannot be
// removed while a bundle still sells it.
package catalog

import (
	"context"
	"errors"
	"math"
	"strings"

	bundlestore "github.com/dalemusser/stratastore/internal/app/store/bundles"
	productstore "github.com/dalemusser/stratastore/internal/app/store/products"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductStore is the product persistence the service needs.
type ProductStore interface {
	Create(ctx context.Context, p models.Product) (models.Product, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, input productstore.UpdateInput) (models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f productstore.ListFilter) ([]models.Product, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
}

// BundleStore is the bundle persistence the service needs.
type BundleStore interface {
	Create(ctx context.Context, b models.Bundle) (models.Bundle, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Bundle, error)
	Update(ctx context.Context, id primitive.ObjectID, input bundlestore.UpdateInput) (models.Bundle, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f bundlestore.ListFilter) ([]models.Bundle, error)
	CountByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error)
}

// SectionLister resolves section references.
type SectionLister interface {
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Section, error)
}

// Service enforces catalog rules.
type Service struct {
	products ProductStore
	bundles  BundleStore
	sections SectionLister
}

// New creates a catalog Service.
func New(products ProductStore, bundles BundleStore, sections SectionLister) *Service {
	return &Service{products: products, bundles: bundles, sections: sections}
}

// ProductInput is the writable shape of a product. On update, nil fields
// are left unchanged; on create, Title, OriginalPrice and SectionIDs are required.
type ProductInput struct {
	Title         *string
	Description   *string
	Image         *string
	SectionIDs    []primitive.ObjectID
	OriginalPrice *float64
	DiscountPrice *float64
	ClearDiscount bool
	Files         []models.FileRef
	IsActive      *bool
	IsFeatured    *bool
}

// CreateProduct validates and inserts a product. New products are active
// unless IsActive says otherwise.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	const op = "products.Create"

	title := strings.TrimSpace(htmlsanitize.Text(deref(in.Title)))
	if title == "" {
		return models.Product{}, apperr.Invalid(op, "title is required")
	}
	if in.OriginalPrice == nil {
		return models.Product{}, apperr.Invalid(op, "originalPrice is required")
	}
	if err := checkPrices(op, *in.OriginalPrice, in.DiscountPrice); err != nil {
		return models.Product{}, err
	}
	if err := s.requireActiveSections(ctx, op, in.SectionIDs, true); err != nil {
		return models.Product{}, err
	}
	files, err := cleanFiles(op, in.Files)
	if err != nil {
		return models.Product{}, err
	}

	p := models.Product{
		Title:         title,
		Description:   htmlsanitize.RichText(deref(in.Description)),
		Image:         strings.TrimSpace(deref(in.Image)),
		SectionIDs:    dedupe(in.SectionIDs),
		OriginalPrice: *in.OriginalPrice,
		Files:         files,
		IsActive:      true,
	}
	if in.DiscountPrice != nil && !in.ClearDiscount {
		p.DiscountPrice = in.DiscountPrice
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}

	created, err := s.products.Create(ctx, p)
	if err != nil {
		return models.Product{}, apperr.Internal(op, err)
	}
	return created, nil
}

// UpdateProduct applies a partial update. Price rules are checked against
// the merged result so a lone discount change cannot exceed the stored price.
func (s *Service) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (models.Product, error) {
	const op = "products.Update"

	cur, err := s.products.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, apperr.NotFound(op, "product")
	}
	if err != nil {
		return models.Product{}, apperr.Internal(op, err)
	}

	upd := productstore.UpdateInput{
		Image:         trimmed(in.Image),
		IsActive:      in.IsActive,
		IsFeatured:    in.IsFeatured,
		ClearDiscount: in.ClearDiscount,
	}

	if in.Title != nil {
		title := strings.TrimSpace(htmlsanitize.Text(*in.Title))
		if title == "" {
			return models.Product{}, apperr.Invalid(op, "title cannot be empty")
		}
		upd.Title = &title
	}
	if in.Description != nil {
		desc := htmlsanitize.RichText(*in.Description)
		upd.Description = &desc
	}

	original, discount := mergePrices(cur.OriginalPrice, cur.DiscountPrice, in.OriginalPrice, in.DiscountPrice, in.ClearDiscount)
	if err := checkPrices(op, original, discount); err != nil {
		return models.Product{}, err
	}
	upd.OriginalPrice = in.OriginalPrice
	if !in.ClearDiscount {
		upd.DiscountPrice = in.DiscountPrice
	}

	if in.SectionIDs != nil {
		if err := s.requireActiveSections(ctx, op, in.SectionIDs, true); err != nil {
			return models.Product{}, err
		}
		upd.SectionIDs = dedupe(in.SectionIDs)
	}
	if in.Files != nil {
		files, err := cleanFiles(op, in.Files)
		if err != nil {
			return models.Product{}, err
		}
		upd.Files = files
	}

	p, err := s.products.Update(ctx, id, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, apperr.NotFound(op, "product")
	}
	if err != nil {
		return models.Product{}, apperr.Internal(op, err)
	}
	return p, nil
}

// DeleteProduct removes a product unless a bundle still contains it.
func (s *Service) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	const op = "products.Delete"

	n, err := s.bundles.CountByProduct(ctx, id)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if n > 0 {
		return apperr.Integrity(op, "product is included in %d %s", n, plural(n, "bundle", "bundles"))
	}

	err = s.products.Delete(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(op, "product")
	}
	if err != nil {
		return apperr.Internal(op, err)
	}
	return nil
}

// GetProduct loads a product. When activeOnly is set an inactive product
// reads as missing.
func (s *Service) GetProduct(ctx context.Context, id primitive.ObjectID, activeOnly bool) (models.Product, error) {
	const op = "products.Get"

	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && activeOnly && !p.IsActive) {
		return models.Product{}, apperr.NotFound(op, "product")
	}
	if err != nil {
		return models.Product{}, apperr.Internal(op, err)
	}
	return p, nil
}

// ListProducts returns products matching f, newest first.
func (s *Service) ListProducts(ctx context.Context, f productstore.ListFilter) ([]models.Product, error) {
	products, err := s.products.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("products.List", err)
	}
	return products, nil
}

// BundleInput is the writable shape of a bundle. On update, nil fields are
// left unchanged; a non-nil empty SectionIDs clears the bundle's sections.
type BundleInput struct {
	Name          *string
	Description   *string
	Image         *string
	OriginalPrice *float64
	DiscountPrice *float64
	ClearDiscount bool
	ProductIDs    []primitive.ObjectID
	SectionIDs    []primitive.ObjectID
	IsActive      *bool
	IsFeatured    *bool
}

// CreateBundle validates and inserts a bundle.
func (s *Service) CreateBundle(ctx context.Context, in BundleInput) (models.BundleWithProducts, error) {
	const op = "bundles.Create"

	name := strings.TrimSpace(htmlsanitize.Text(deref(in.Name)))
	if name == "" {
		return models.BundleWithProducts{}, apperr.Invalid(op, "name is required")
	}
	if in.OriginalPrice == nil {
		return models.BundleWithProducts{}, apperr.Invalid(op, "originalPrice is required")
	}
	if err := checkPrices(op, *in.OriginalPrice, in.DiscountPrice); err != nil {
		return models.BundleWithProducts{}, err
	}
	products, err := s.requireProducts(ctx, op, in.ProductIDs)
	if err != nil {
		return models.BundleWithProducts{}, err
	}
	if err := s.requireActiveSections(ctx, op, in.SectionIDs, false); err != nil {
		return models.BundleWithProducts{}, err
	}

	b := models.Bundle{
		Name:          name,
		Description:   htmlsanitize.RichText(deref(in.Description)),
		Image:         strings.TrimSpace(deref(in.Image)),
		OriginalPrice: *in.OriginalPrice,
		ProductIDs:    dedupe(in.ProductIDs),
		SectionIDs:    dedupe(in.SectionIDs),
		IsActive:      true,
	}
	if in.DiscountPrice != nil && !in.ClearDiscount {
		b.DiscountPrice = in.DiscountPrice
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		b.IsFeatured = *in.IsFeatured
	}

	created, err := s.bundles.Create(ctx, b)
	if err != nil {
		return models.BundleWithProducts{}, apperr.Internal(op, err)
	}
	return models.BundleWithProducts{Bundle: created, Products: products}, nil
}

// UpdateBundle applies a partial update and returns the populated bundle.
func (s *Service) UpdateBundle(ctx context.Context, id primitive.ObjectID, in BundleInput) (models.BundleWithProducts, error) {
	const op = "bundles.Update"

	cur, err := s.bundles.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BundleWithProducts{}, apperr.NotFound(op, "bundle")
	}
	if err != nil {
		return models.BundleWithProducts{}, apperr.Internal(op, err)
	}

	upd := bundlestore.UpdateInput{
		Image:         trimmed(in.Image),
		IsActive:      in.IsActive,
		IsFeatured:    in.IsFeatured,
		ClearDiscount: in.ClearDiscount,
	}
	if in.Name != nil {
		name := strings.TrimSpace(htmlsanitize.Text(*in.Name))
		if name == "" {
			return models.BundleWithProducts{}, apperr.Invalid(op, "name cannot be empty")
		}
		upd.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.RichText(*in.Description)
		upd.Description = &desc
	}

	original, discount := mergePrices(cur.OriginalPrice, cur.DiscountPrice, in.OriginalPrice, in.DiscountPrice, in.ClearDiscount)
	if err := checkPrices(op, original, discount); err != nil {
		return models.BundleWithProducts{}, err
	}
	upd.OriginalPrice = in.OriginalPrice
	if !in.ClearDiscount {
		upd.DiscountPrice = in.DiscountPrice
	}

	if in.ProductIDs != nil {
		if _, err := s.requireProducts(ctx, op, in.ProductIDs); err != nil {
			return models.BundleWithProducts{}, err
		}
		upd.ProductIDs = dedupe(in.ProductIDs)
	}
	if in.SectionIDs != nil {
		if err := s.requireActiveSections(ctx, op, in.SectionIDs, false); err != nil {
			return models.BundleWithProducts{}, err
		}
		upd.SectionIDs = dedupe(in.SectionIDs)
	}

	b, err := s.bundles.Update(ctx, id, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BundleWithProducts{}, apperr.NotFound(op, "bundle")
	}
	if err != nil {
		return models.BundleWithProducts{}, apperr.Internal(op, err)
	}
	return s.populate(ctx, op, b)
}

// DeleteBundle removes a bundle. Orders keep their bundle reference.
func (s *Service) DeleteBundle(ctx context.Context, id primitive.ObjectID) error {
	const op = "bundles.Delete"

	err := s.bundles.Delete(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(op, "bundle")
	}
	if err != nil {
		return apperr.Internal(op, err)
	}
	return nil
}

// GetBundle loads a bundle with its products in bundle order.
func (s *Service) GetBundle(ctx context.Context, id primitive.ObjectID, activeOnly bool) (models.BundleWithProducts, error) {
	const op = "bundles.Get"

	b, err := s.bundles.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && activeOnly && !b.IsActive) {
		return models.BundleWithProducts{}, apperr.NotFound(op, "bundle")
	}
	if err != nil {
		return models.BundleWithProducts{}, apperr.Internal(op, err)
	}
	return s.populate(ctx, op, b)
}

// ListBundles returns bundles matching f with their products populated.
func (s *Service) ListBundles(ctx context.Context, f bundlestore.ListFilter) ([]models.BundleWithProducts, error) {
	const op = "bundles.List"

	bundles, err := s.bundles.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	// One product query for the whole page.
	var ids []primitive.ObjectID
	for _, b := range bundles {
		ids = append(ids, b.ProductIDs...)
	}
	products, err := s.products.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]models.BundleWithProducts, 0, len(bundles))
	for _, b := range bundles {
		bp := models.BundleWithProducts{Bundle: b, Products: []models.Product{}}
		for _, pid := range b.ProductIDs {
			if p, ok := byID[pid]; ok {
				bp.Products = append(bp.Products, p)
			}
		}
		out = append(out, bp)
	}
	return out, nil
}

func (s *Service) populate(ctx context.Context, op string, b models.Bundle) (models.BundleWithProducts, error) {
	products, err := s.products.ListByIDs(ctx, b.ProductIDs)
	if err != nil {
		return models.BundleWithProducts{}, apperr.Internal(op, err)
	}
	return models.BundleWithProducts{Bundle: b, Products: products}, nil
}

// requireProducts checks that ids is non-empty and every id resolves.
func (s *Service) requireProducts(ctx context.Context, op string, ids []primitive.ObjectID) ([]models.Product, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, apperr.Invalid(op, "a bundle must contain at least one product")
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if len(products) != len(ids) {
		return nil, apperr.Invalid(op, "%d of %d products not found", len(ids)-len(products), len(ids))
	}
	return products, nil
}

// requireActiveSections checks that every id names an active section.
func (s *Service) requireActiveSections(ctx context.Context, op string, ids []primitive.ObjectID, required bool) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		if required {
			return apperr.Invalid(op, "at least one section is required")
		}
		return nil
	}
	sections, err := s.sections.ListByIDs(ctx, ids)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if len(sections) != len(ids) {
		return apperr.Invalid(op, "section not found")
	}
	for _, sec := range sections {
		if !sec.IsActive {
			return apperr.Invalid(op, "section %q is not active", sec.Name)
		}
	}
	return nil
}

func checkPrices(op string, original float64, discount *float64) error {
	if math.IsNaN(original) || math.IsInf(original, 0) || original < 0 {
		return apperr.Invalid(op, "originalPrice must be zero or more")
	}
	if discount == nil {
		return nil
	}
	d := *discount
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return apperr.Invalid(op, "discountPrice must be zero or more")
	}
	if d > original {
		return apperr.Invalid(op, "discountPrice cannot exceed originalPrice")
	}
	return nil
}

// mergePrices returns the prices that would be stored after an update.
func mergePrices(curOriginal float64, curDiscount, newOriginal, newDiscount *float64, clear bool) (float64, *float64) {
	original := curOriginal
	if newOriginal != nil {
		original = *newOriginal
	}
	discount := curDiscount
	switch {
	case clear:
		discount = nil
	case newDiscount != nil:
		discount = newDiscount
	}
	return original, discount
}

func cleanFiles(op string, files []models.FileRef) ([]models.FileRef, error) {
	out := make([]models.FileRef, 0, len(files))
	for i, f := range files {
		f.Name = strings.TrimSpace(f.Name)
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" {
			return nil, apperr.Invalid(op, "file %d has no url", i+1)
		}
		if f.Name == "" {
			f.Name = f.URL[strings.LastIndex(f.URL, "/")+1:]
		}
		out = append(out, f)
	}
	return out, nil
}

// dedupe drops repeated ids, keeping first occurrence order.
func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
