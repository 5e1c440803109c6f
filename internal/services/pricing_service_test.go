package services

import (
	"testing"

	"swaad_backend/internal/models"
	"swaad_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMenuRepo struct {
	items map[int64]*models.MenuItem
}

func (f *fakeMenuRepo) GetItemForOrder(menuItemID int64, restaurantUID string) (*models.MenuItem, error) {
	item, ok := f.items[menuItemID]
	if !ok || item.RestaurantUID != restaurantUID {
		return nil, repositories.ErrNotFound
	}
	return item, nil
}

func newFakeMenu() *fakeMenuRepo {
	return &fakeMenuRepo{items: map[int64]*models.MenuItem{
		1: {ID: 1, RestaurantUID: "rest-1", Name: "Paneer Tikka", Price: 240, Available: true},
		2: {ID: 2, RestaurantUID: "rest-1", Name: "Garlic Naan", Price: 60, Available: true},
		3: {ID: 3, RestaurantUID: "rest-1", Name: "Old Special", Price: 150, Available: true, Deleted: true},
		4: {ID: 4, RestaurantUID: "rest-1", Name: "Out Of Stock", Price: 90, Available: false},
		5: {ID: 5, RestaurantUID: "rest-2", Name: "Other Restaurant Dish", Price: 120, Available: true},
	}}
}

func TestValidateCanonicalFeeScenario(t *testing.T) {
	t.Parallel()

	// subtotal 480 -> delivery 20 (under 500), packing 5, GST 24 (5%),
	// platform 0 (at/above 300) -> total 529
	svc := NewPricingService(newFakeMenu(), DefaultFeePolicy())
	lines := []OrderLineInput{
		{MenuItemID: 1, Quantity: 2}, // 480
	}

	breakdown, err := svc.Validate("rest-1", lines, 480.00, 529.00)
	require.NoError(t, err)
	assert.Equal(t, 480.00, breakdown.Subtotal)
	assert.Equal(t, 20.00, breakdown.DeliveryFee)
	assert.Equal(t, 5.00, breakdown.PackingFee)
	assert.Equal(t, 24.00, breakdown.GSTAmount)
	assert.Equal(t, 0.00, breakdown.PlatformFee)
	assert.Equal(t, 529.00, breakdown.Total)
}

func TestValidateForgedTotalRejected(t *testing.T) {
	t.Parallel()

	svc := NewPricingService(newFakeMenu(), DefaultFeePolicy())
	lines := []OrderLineInput{{MenuItemID: 1, Quantity: 2}}

	_, err := svc.Validate("rest-1", lines, 480.00, 520.00)
	require.ErrorIs(t, err, ErrPriceMismatch)
}

func TestValidateTolerances(t *testing.T) {
	t.Parallel()

	svc := NewPricingService(newFakeMenu(), DefaultFeePolicy())
	lines := []OrderLineInput{{MenuItemID: 1, Quantity: 2}}

	// within tolerance
	_, err := svc.Validate("rest-1", lines, 480.01, 529.02)
	assert.NoError(t, err)

	// subtotal out of tolerance
	_, err = svc.Validate("rest-1", lines, 480.05, 529.00)
	assert.ErrorIs(t, err, ErrPriceMismatch)

	// total out of tolerance
	_, err = svc.Validate("rest-1", lines, 480.00, 529.05)
	assert.ErrorIs(t, err, ErrPriceMismatch)
}

func TestValidateFeeWaivers(t *testing.T) {
	t.Parallel()

	svc := NewPricingService(newFakeMenu(), DefaultFeePolicy())

	// subtotal 600 >= 500: delivery waived; GST 30; platform waived; total 635
	lines := []OrderLineInput{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 2}} // 480 + 120
	breakdown, err := svc.Validate("rest-1", lines, 600.00, 635.00)
	require.NoError(t, err)
	assert.Equal(t, 0.00, breakdown.DeliveryFee)
	assert.Equal(t, 30.00, breakdown.GSTAmount)
	assert.Equal(t, 0.00, breakdown.PlatformFee)

	// subtotal 120 < 300: platform fee applies; 120+20+5+6+5 = 156
	small := []OrderLineInput{{MenuItemID: 2, Quantity: 2}}
	breakdown, err = svc.Validate("rest-1", small, 120.00, 156.00)
	require.NoError(t, err)
	assert.Equal(t, 5.00, breakdown.PlatformFee)
	assert.Equal(t, 156.00, breakdown.Total)
}

func TestValidateUnavailableItems(t *testing.T) {
	t.Parallel()

	svc := NewPricingService(newFakeMenu(), DefaultFeePolicy())

	tests := []struct {
		name string
		line OrderLineInput
	}{
		{"soft-deleted item", OrderLineInput{MenuItemID: 3, Quantity: 1}},
		{"unavailable item", OrderLineInput{MenuItemID: 4, Quantity: 1}},
		{"missing item", OrderLineInput{MenuItemID: 999, Quantity: 1}},
		{"other restaurant's item", OrderLineInput{MenuItemID: 5, Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate("rest-1", []OrderLineInput{tt.line}, 100, 100)
			assert.ErrorIs(t, err, ErrItemUnavailable)
		})
	}
}

func TestValidateInputShape(t *testing.T) {
	t.Parallel()

	svc := NewPricingService(newFakeMenu(), DefaultFeePolicy())

	_, err := svc.Validate("rest-1", nil, 0, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Validate("rest-1", []OrderLineInput{{MenuItemID: 1, Quantity: 0}}, 0, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSnapshotPricing(t *testing.T) {
	t.Parallel()

	// The breakdown carries the price observed now; a later menu edit must not
	// change an already-computed line.
	menu := newFakeMenu()
	svc := NewPricingService(menu, DefaultFeePolicy())

	// 60 + delivery 20 + packing 5 + GST 3 + platform 5 = 93
	breakdown, err := svc.Validate("rest-1", []OrderLineInput{{MenuItemID: 2, Quantity: 1}}, 60.00, 93.00)
	require.NoError(t, err)
	require.Len(t, breakdown.Lines, 1)
	assert.Equal(t, 60.00, breakdown.Lines[0].UnitPrice)

	menu.items[2].Price = 80
	assert.Equal(t, 60.00, breakdown.Lines[0].UnitPrice)
}
