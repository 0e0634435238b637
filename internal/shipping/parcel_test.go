package shipping

import (
	"testing"

	"github.com/google/uuid"

	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

func float(v float64) *float64 { return &v }
func str(v string) *string     { return &v }

func TestBuildParcelBillableWeightFormula(t *testing.T) {
	// 10 oz actual + 8 oz tare = 18; dimensional for 10x6x4 box is
	// (240/139)*16 = 27.6..., so billable rounds up to 28.
	items := []types.CartItem{
		{ProductID: uuid.New(), Qty: 2, WeightOz: float(5)},
	}
	parcel := BuildParcel(items, ParcelOptions{})

	if parcel.BillableWeightOz != 28 {
		t.Fatalf("expected 28 oz billable, got %v", parcel.BillableWeightOz)
	}
	if parcel.LengthIn != 10 || parcel.WidthIn != 6 || parcel.HeightIn != 4 {
		t.Fatalf("expected default box to remain 10x6x4, got %vx%vx%v", parcel.LengthIn, parcel.WidthIn, parcel.HeightIn)
	}
}

func TestBuildParcelGrowsBoxForFullyDimensionedItems(t *testing.T) {
	items := []types.CartItem{
		{Qty: 1, WeightOz: float(4), LengthIn: float(14), WidthIn: float(5), HeightIn: float(6)},
		// Missing height, must not influence the box.
		{Qty: 1, WeightOz: float(4), LengthIn: float(40), WidthIn: float(40)},
	}
	parcel := BuildParcel(items, ParcelOptions{})

	if parcel.LengthIn != 14 {
		t.Fatalf("expected length 14, got %v", parcel.LengthIn)
	}
	if parcel.WidthIn != 6 {
		t.Fatalf("expected width to stay at default 6, got %v", parcel.WidthIn)
	}
	if parcel.HeightIn != 6 {
		t.Fatalf("expected height 6, got %v", parcel.HeightIn)
	}
}

func TestBuildParcelWeightPreference(t *testing.T) {
	tests := []struct {
		name string
		item types.CartItem
		want float64
	}{
		{
			name: "explicit ounce override wins",
			item: types.CartItem{Qty: 1, WeightOz: float(12), Weight: float(5), WeightUnit: str("lb")},
			want: 12,
		},
		{
			name: "pound pair converts",
			item: types.CartItem{Qty: 1, Weight: float(2), WeightUnit: str("lb")},
			want: 32,
		},
		{
			name: "kilogram pair converts",
			item: types.CartItem{Qty: 1, Weight: float(1), WeightUnit: str("kg")},
			want: 35.27396195,
		},
		{
			name: "unknown unit falls back to default",
			item: types.CartItem{Qty: 1, Weight: float(3), WeightUnit: str("stone")},
			want: 4,
		},
		{
			name: "no weight data falls back to default",
			item: types.CartItem{Qty: 1},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := itemWeightOz(tt.item, 4)
			if got != tt.want {
				t.Fatalf("expected %v oz, got %v", tt.want, got)
			}
		})
	}
}

func TestBuildParcelMinimumApplies(t *testing.T) {
	// Tiny light item in a tiny would-be box still bills the minimum.
	items := []types.CartItem{{Qty: 1, WeightOz: float(0.5)}}
	parcel := BuildParcel(items, ParcelOptions{PackagingTareOz: 1, MinBillableOz: 8})

	// dimensional weight of the default box dominates here
	if parcel.BillableWeightOz < 8 {
		t.Fatalf("billable weight below minimum: %v", parcel.BillableWeightOz)
	}
}

func TestBuildParcelZeroQtyTreatedAsOne(t *testing.T) {
	items := []types.CartItem{{Qty: 0, WeightOz: float(10)}}
	withZero := BuildParcel(items, ParcelOptions{})
	items[0].Qty = 1
	withOne := BuildParcel(items, ParcelOptions{})
	if withZero.BillableWeightOz != withOne.BillableWeightOz {
		t.Fatalf("qty 0 should bill like qty 1: %v vs %v", withZero.BillableWeightOz, withOne.BillableWeightOz)
	}
}
