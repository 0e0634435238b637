package shipping

import (
	"math"
	"strings"

	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

const (
	// DefaultPackagingTareOz is added to the summed item weight to account
	// for box and filler.
	DefaultPackagingTareOz = 8.0

	// DefaultMinBillableOz is the absolute floor of the billable weight
	// formula itself; carrier service floors are enforced separately.
	DefaultMinBillableOz = 8.0

	defaultBoxLengthIn = 10.0
	defaultBoxWidthIn  = 6.0
	defaultBoxHeightIn = 4.0

	// Industry-standard volumetric divisor: cubic inches per pound.
	dimensionalDivisor = 139.0

	ouncesPerPound    = 16.0
	ouncesPerGram     = 0.03527396195
	ouncesPerKilogram = 35.27396195
)

// Parcel is the billable package computed from a cart.
type Parcel struct {
	LengthIn         float64
	WidthIn          float64
	HeightIn         float64
	BillableWeightOz float64
}

// ParcelOptions tune the weight formula. Zero values fall back to defaults.
type ParcelOptions struct {
	PackagingTareOz     float64
	MinBillableOz       float64
	DefaultItemWeightOz float64
}

// BuildParcel converts cart lines into one parcel description. Pure: no I/O,
// deterministic for a given input.
//
// billable = max(minimum, ceil(actual + tare), ceil(dimensional))
func BuildParcel(items []types.CartItem, opts ParcelOptions) Parcel {
	tare := opts.PackagingTareOz
	if tare == 0 {
		tare = DefaultPackagingTareOz
	}
	minOz := opts.MinBillableOz
	if minOz == 0 {
		minOz = DefaultMinBillableOz
	}

	actualOz := 0.0
	length, width, height := defaultBoxLengthIn, defaultBoxWidthIn, defaultBoxHeightIn

	for _, item := range items {
		qty := item.Qty
		if qty < 1 {
			qty = 1
		}
		actualOz += itemWeightOz(item, opts.DefaultItemWeightOz) * float64(qty)

		// The box only grows for items that supply all three dimensions.
		if item.LengthIn != nil && item.WidthIn != nil && item.HeightIn != nil {
			length = math.Max(length, *item.LengthIn)
			width = math.Max(width, *item.WidthIn)
			height = math.Max(height, *item.HeightIn)
		}
	}

	dimensionalOz := (length * width * height / dimensionalDivisor) * ouncesPerPound

	billable := math.Max(minOz, math.Ceil(actualOz+tare))
	billable = math.Max(billable, math.Ceil(dimensionalOz))

	return Parcel{
		LengthIn:         length,
		WidthIn:          width,
		HeightIn:         height,
		BillableWeightOz: billable,
	}
}

func itemWeightOz(item types.CartItem, defaultOz float64) float64 {
	if item.WeightOz != nil && *item.WeightOz > 0 {
		return *item.WeightOz
	}
	if item.Weight != nil && *item.Weight > 0 && item.WeightUnit != nil {
		if oz, ok := toOunces(*item.Weight, *item.WeightUnit); ok {
			return oz
		}
	}
	return defaultOz
}

func toOunces(value float64, unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "oz", "ounce", "ounces":
		return value, true
	case "lb", "lbs", "pound", "pounds":
		return value * ouncesPerPound, true
	case "g", "gram", "grams":
		return value * ouncesPerGram, true
	case "kg", "kilogram", "kilograms":
		return value * ouncesPerKilogram, true
	default:
		return 0, false
	}
}
