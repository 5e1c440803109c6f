package services

import (
	"errors"
	"fmt"
	"math"

	"swaad_backend/internal/repositories"
)

// Price tolerances in rupees. The client's floating-point arithmetic may drift
// by a paisa; anything beyond that is treated as a forged total.
const (
	SubtotalTolerance = 0.01
	TotalTolerance    = 0.02
)

// FeePolicy holds the deployment-configurable fee parameters. Thresholds are
// compared against the recomputed subtotal, never client-declared numbers.
type FeePolicy struct {
	DeliveryFee          float64 // flat, waived at or above DeliveryFreeAbove
	DeliveryFreeAbove    float64
	PackingFee           float64 // flat, always applied
	GSTRate              float64 // fraction of subtotal, e.g. 0.05
	PlatformFee          float64 // flat, waived at or above PlatformFreeAbove
	PlatformFreeAbove    float64
}

// DefaultFeePolicy returns the standard deployment policy.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		DeliveryFee:       20,
		DeliveryFreeAbove: 500,
		PackingFee:        5,
		GSTRate:           0.05,
		PlatformFee:       5,
		PlatformFreeAbove: 300,
	}
}

// OrderLineInput is one requested line: a menu item reference and quantity.
type OrderLineInput struct {
	MenuItemID int64 `json:"menu_item_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required,gt=0"`
}

// PricedLine is a line with its authoritative snapshot price.
type PricedLine struct {
	MenuItemID int64
	ItemName   string
	Quantity   int
	UnitPrice  float64
	TotalPrice float64
}

// PriceBreakdown is the server-side recomputation of an order's money.
type PriceBreakdown struct {
	Lines       []PricedLine
	Subtotal    float64
	DeliveryFee float64
	PackingFee  float64
	GSTAmount   float64
	PlatformFee float64
	Total       float64
}

// PricingService recomputes order totals from authoritative menu data and
// rejects client-declared numbers that deviate beyond tolerance.
type PricingService interface {
	Validate(restaurantUID string, lines []OrderLineInput, declaredSubtotal, declaredTotal float64) (*PriceBreakdown, error)
}

type pricingService struct {
	menuRepo repositories.MenuRepository
	policy   FeePolicy
}

// NewPricingService creates a PricingService with the given fee policy.
func NewPricingService(menuRepo repositories.MenuRepository, policy FeePolicy) PricingService {
	return &pricingService{menuRepo: menuRepo, policy: policy}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Fees computes the fee components for a given recomputed subtotal.
func (p FeePolicy) Fees(subtotal float64) (delivery, packing, gst, platform float64) {
	delivery = p.DeliveryFee
	if subtotal >= p.DeliveryFreeAbove {
		delivery = 0
	}
	packing = p.PackingFee
	gst = round2(subtotal * p.GSTRate)
	platform = p.PlatformFee
	if subtotal >= p.PlatformFreeAbove {
		platform = 0
	}
	return delivery, packing, gst, platform
}

func (s *pricingService) Validate(restaurantUID string, lines []OrderLineInput, declaredSubtotal, declaredTotal float64) (*PriceBreakdown, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}

	breakdown := &PriceBreakdown{Lines: make([]PricedLine, 0, len(lines))}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for menu item %d must be positive", ErrValidation, line.MenuItemID)
		}

		item, err := s.menuRepo.GetItemForOrder(line.MenuItemID, restaurantUID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: menu item %d", ErrItemUnavailable, line.MenuItemID)
			}
			return nil, fmt.Errorf("failed to fetch menu item %d: %w", line.MenuItemID, err)
		}
		if item.Deleted || !item.Available {
			return nil, fmt.Errorf("%w: %s (ID: %d)", ErrItemUnavailable, item.Name, item.ID)
		}

		lineTotal := round2(item.Price * float64(line.Quantity))
		breakdown.Lines = append(breakdown.Lines, PricedLine{
			MenuItemID: item.ID,
			ItemName:   item.Name,
			Quantity:   line.Quantity,
			UnitPrice:  item.Price,
			TotalPrice: lineTotal,
		})
		breakdown.Subtotal = round2(breakdown.Subtotal + lineTotal)
	}

	breakdown.DeliveryFee, breakdown.PackingFee, breakdown.GSTAmount, breakdown.PlatformFee = s.policy.Fees(breakdown.Subtotal)
	breakdown.Total = round2(breakdown.Subtotal + breakdown.DeliveryFee + breakdown.PackingFee + breakdown.GSTAmount + breakdown.PlatformFee)

	if math.Abs(declaredSubtotal-breakdown.Subtotal) > SubtotalTolerance {
		return nil, fmt.Errorf("%w: declared subtotal %.2f, calculated %.2f", ErrPriceMismatch, declaredSubtotal, breakdown.Subtotal)
	}
	if math.Abs(declaredTotal-breakdown.Total) > TotalTolerance {
		return nil, fmt.Errorf("%w: declared total %.2f, expected %.2f", ErrPriceMismatch, declaredTotal, breakdown.Total)
	}
	return breakdown, nil
}
