package store

import (
	"context"
	"fmt"
	"net/url"

	"skincare-client/internal/domain"
	"skincare-client/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// UserSource reports the logged-in user.
type UserSource interface {
	User() *domain.User
}

// AdminService backs the admin console. Every call requires the admin role locally;
// the backend enforces it again.
type AdminService struct {
	api      Requester
	users    UserSource
	products *ProductCache
	log      zerolog.Logger
}

func NewAdminService(requester Requester, users UserSource, products *ProductCache) *AdminService {
	return &AdminService{
		api:      requester,
		users:    users,
		products: products,
		log:      logger.WithStore("admin"),
	}
}

func (s *AdminService) requireAdmin() error {
	if s.users.User() == nil {
		return domain.ErrUnauthenticated
	}
	if !s.users.User().IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *AdminService) UpdateStock(ctx context.Context, productID int64, stock int) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if stock < 0 {
		return &domain.ValidationError{Fields: map[string]string{"stock": "must not be negative"}}
	}
	return s.patchProduct(ctx, productID, domain.ProductPatch{Stock: &stock})
}

func (s *AdminService) UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if !price.IsPositive() {
		return &domain.ValidationError{Fields: map[string]string{"precio": "must be greater than zero"}}
	}
	return s.patchProduct(ctx, productID, domain.ProductPatch{Price: &price})
}

// patchProduct updates the product and drops its cached detail so the next
// hydration sees the change.
func (s *AdminService) patchProduct(ctx context.Context, productID int64, patch domain.ProductPatch) error {
	if _, err := s.api.Patch(ctx, fmt.Sprintf("/admin/products/%d", productID), patch); err != nil {
		return fmt.Errorf("update product %d: %w", productID, err)
	}
	s.products.Invalidate(productID)
	s.log.Info().Int64("product_id", productID).Msg("product updated")
	return nil
}

// Orders lists all orders, optionally filtered by status.
func (s *AdminService) Orders(ctx context.Context, status string) ([]domain.Order, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	path := "/admin/orders"
	if status != "" {
		if !domain.IsValidOrderStatus(status) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
		}
		path += "?estado=" + url.QueryEscape(status)
	}

	resp, err := s.api.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var env domain.Envelope[[]domain.Order]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return env.Body, nil
}

func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if !domain.IsValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	if _, err := s.api.Patch(ctx, fmt.Sprintf("/admin/orders/%d", orderID), domain.OrderStatusPatch{Status: status}); err != nil {
		return fmt.Errorf("update order %d: %w", orderID, err)
	}
	s.log.Info().Int64("order_id", orderID).Str("estado", status).Msg("order status updated")
	return nil
}

// PurgeProducts drops all cached product detail so the next hydration reads
// the backend.
func (s *AdminService) PurgeProducts() error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	s.products.Purge()
	s.log.Info().Msg("product cache purged")
	return nil
}
