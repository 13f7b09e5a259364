package usecases

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/ports"
	"github.com/medsnear/medsnear/internal/core/pricing"
	"github.com/medsnear/medsnear/internal/pkg/metrics"
)

const maxQuoteLines = 50

// QuoteLineRequest is one requested item of a quote.
type QuoteLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// QuoteRequest is the input for CheckoutService.Quote.
type QuoteRequest struct {
	Lines      []QuoteLineRequest `json:"lines"`
	CouponCode string             `json:"coupon_code,omitempty"`
}

// CheckoutService prices baskets.
type CheckoutService struct {
	items   ports.CatalogRepository
	coupons ports.CouponRepository
	now     func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(items ports.CatalogRepository, coupons ports.CouponRepository) *CheckoutService {
	return &CheckoutService{items: items, coupons: coupons, now: time.Now}
}

// Quote prices req and applies its coupon, if any.
func (s *CheckoutService) Quote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	q, err := s.quote(ctx, req)
	switch {
	case err != nil:
		metrics.QuotesPriced.WithLabelValues("rejected").Inc()
	case q.Discount > 0:
		metrics.QuotesPriced.WithLabelValues("discounted").Inc()
	default:
		metrics.QuotesPriced.WithLabelValues("priced").Inc()
	}
	return q, err
}

func (s *CheckoutService) quote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", domain.ErrInvalidInput)
	}
	if len(req.Lines) > maxQuoteLines {
		return nil, fmt.Errorf("%w: at most %d lines", domain.ErrInvalidInput, maxQuoteLines)
	}

	// Merge repeated items, keeping first-seen order.
	qty := make(map[string]int, len(req.Lines))
	ids := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		id := strings.TrimSpace(l.ItemID)
		if id == "" {
			return nil, fmt.Errorf("%w: item_id is required", domain.ErrInvalidInput)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be positive", domain.ErrInvalidInput, id)
		}
		if qty[id] > math.MaxInt-l.Quantity {
			return nil, fmt.Errorf("%w: quantity for %s is too large", domain.ErrInvalidInput, id)
		}
		if _, seen := qty[id]; !seen {
			ids = append(ids, id)
		}
		qty[id] += l.Quantity
	}

	code := strings.ToUpper(strings.TrimSpace(req.CouponCode))

	var (
		items  []domain.CatalogItem
		coupon *domain.Coupon
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.items.GetByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		return nil
	})
	if code != "" {
		g.Go(func() error {
			var err error
			coupon, err = s.coupons.GetByCode(gctx, code)
			if err != nil {
				return fmt.Errorf("coupon %s: %w", code, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.CatalogItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	q := &domain.Quote{Lines: make([]domain.QuoteLine, 0, len(ids))}
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		n := qty[id]
		if n <= 0 || n > item.Stock {
			return nil, fmt.Errorf("%w: only %d of %s in stock", domain.ErrInvalidInput, item.Stock, id)
		}
		if q.Currency == "" {
			q.Currency = item.Currency
		} else if item.Currency != q.Currency {
			return nil, fmt.Errorf("%w: mixed currencies %s and %s", domain.ErrInvalidInput, q.Currency, item.Currency)
		}

		if item.Price > 0 && int64(n) > math.MaxInt64/item.Price {
			return nil, fmt.Errorf("%w: line total for %s overflows", domain.ErrInvalidInput, id)
		}

		line := domain.QuoteLine{
			ItemID:    id,
			Name:      item.Name,
			Quantity:  n,
			UnitPrice: item.Price,
			LineTotal: item.Price * int64(n),
		}
		if q.Subtotal > math.MaxInt64-line.LineTotal {
			return nil, fmt.Errorf("%w: basket total overflows", domain.ErrInvalidInput)
		}
		q.Lines = append(q.Lines, line)
		q.Subtotal += line.LineTotal
	}

	if coupon != nil {
		discount, err := pricing.Apply(q.Subtotal, *coupon, s.now())
		if err != nil {
			return nil, fmt.Errorf("coupon %s: %w", code, err)
		}
		q.Discount = discount
		q.CouponCode = coupon.Code
	}
	q.Total = q.Subtotal - q.Discount
	return q, nil
}
