// Package testutil provides common sample orders for testing.
package testutil

import (
	"github.com/iwvelando/true-cost/internal/order"
)

// AUDOrder returns an order already in the target currency: subtotal 115.17
// with 12.50 shipping spread over nineteen lots.
func AUDOrder() order.Record {
	rec := order.Record{
		OrderID:      "29154233",
		Currency:     "AUD",
		ExchangeRate: 1.0,
		Subtotal:     115.17,
		Shipping:     12.50,
		Items: []order.LineItem{
			{Name: "Red Barb/Claw/Horn/Tooth with Clip", Quantity: 30, UnitPrice: 0.071, LineTotal: 2.13},
			{Name: "Reddish Brown Bar 7x3 with 2 Open O Clips", Quantity: 8, UnitPrice: 0.288, LineTotal: 2.304},
			{Name: "Dark Tan Brick Round 4x4x2/3 Dome Top", Quantity: 16, UnitPrice: 0.419, LineTotal: 6.704},
			{Name: "Black Cylinder Half 2x4x5 with Cutout", Quantity: 12, UnitPrice: 0.618, LineTotal: 7.416},
			{Name: "Red Cylinder Half 2x4x5 with Cutout", Quantity: 12, UnitPrice: 0.616, LineTotal: 7.392},
			{Name: "White Dish 4x4 Inverted with Clock Pattern", Quantity: 2, UnitPrice: 1.799, LineTotal: 3.598},
			{Name: "Black Dish 8x8 Inverted with Batman Logo", Quantity: 11, UnitPrice: 2.784, LineTotal: 30.624},
			{Name: "Dark Blue Flag 4x1 Wave Right", Quantity: 10, UnitPrice: 0.211, LineTotal: 2.11},
			{Name: "Reddish Brown Minifigure Weapon Holder Ring", Quantity: 20, UnitPrice: 0.593, LineTotal: 11.86},
			{Name: "Dark Orange Plate 2x3", Quantity: 40, UnitPrice: 0.132, LineTotal: 5.28},
			{Name: "Medium Nougat Plate 6x12", Quantity: 4, UnitPrice: 0.39, LineTotal: 1.56},
			{Name: "Trans-Orange Plate Modified 2x2 with Groove", Quantity: 50, UnitPrice: 0.107, LineTotal: 5.35},
			{Name: "Dark Tan Plate Round 1x1 with Open Stud", Quantity: 100, UnitPrice: 0.041, LineTotal: 4.10},
			{Name: "Dark Azure Plate Round Corner 5x5 Macaroni", Quantity: 16, UnitPrice: 0.076, LineTotal: 1.216},
			{Name: "Dark Blue Plate Round Corner 5x5 Macaroni", Quantity: 16, UnitPrice: 0.172, LineTotal: 2.752},
			{Name: "White Slope 45 2x1 Double with Bottom Stud", Quantity: 20, UnitPrice: 0.146, LineTotal: 2.92},
			{Name: "Tan Tile 1x2 with Door Pattern", Quantity: 20, UnitPrice: 0.23, LineTotal: 4.60},
			{Name: "Dark Blue Tile Modified 1x3 Inverted", Quantity: 30, UnitPrice: 0.131, LineTotal: 3.93},
			{Name: "Pearl Gold Tile Round 1x1 with Dragon Pattern", Quantity: 20, UnitPrice: 0.466, LineTotal: 9.32},
		},
	}
	rec.GrandTotal = rec.DerivedGrandTotal()
	return rec
}

// EUROrder returns a foreign-currency order: subtotal 145.56 with 14.80
// shipping. Only a sample of its lots is listed, so the item totals do not
// add up to the subtotal.
func EUROrder() order.Record {
	rec := order.Record{
		OrderID:      "29055780",
		Currency:     "EUR",
		ExchangeRate: 1.0,
		Subtotal:     145.56,
		Shipping:     14.80,
		Items: []order.LineItem{
			{Name: "Belle - Minifigure, Dress with White Creases", Quantity: 1, UnitPrice: 15.22756, LineTotal: 15.2276},
			{Name: "Bruno Madrigal", Quantity: 1, UnitPrice: 7.09084, LineTotal: 7.0908},
			{Name: "Lilo - Long Dress", Quantity: 1, UnitPrice: 7.82067, LineTotal: 7.8206},
			{Name: "Bright Light Orange Cat", Quantity: 4, UnitPrice: 5.06832, LineTotal: 20.2733},
			{Name: "Tan Brick Round 6x6", Quantity: 12, UnitPrice: 0.47899, LineTotal: 5.7479},
		},
	}
	rec.GrandTotal = rec.DerivedGrandTotal()
	return rec
}

// USDOrder returns an order with a surcharge and a coupon credit.
func USDOrder() order.Record {
	rec := order.Record{
		OrderID:      "29062495",
		Currency:     "USD",
		ExchangeRate: 1.0,
		Subtotal:     41.78,
		Shipping:     7.92,
		Surcharge1:   2.99,
		CouponCredit: 1.10,
		Items: []order.LineItem{
			{Name: "Bright Light Yellow Butterfly with Stud Holder", Quantity: 8, UnitPrice: 0.541, LineTotal: 4.328},
			{Name: "Light Bluish Gray Container Box 2x2x1", Quantity: 5, UnitPrice: 0.60, LineTotal: 3.00},
			{Name: "Black Dish 8x8 Inverted Batman Logo", Quantity: 5, UnitPrice: 2.448, LineTotal: 12.24},
			{Name: "Lime Tile Modified 2x3 Pentagonal", Quantity: 10, UnitPrice: 0.288, LineTotal: 2.88},
			{Name: "Light Bluish Gray Tile Round 1x1 Gauge", Quantity: 10, UnitPrice: 0.039, LineTotal: 0.39},
			{Name: "Black Tile Round 2x4 Oval Dashboard", Quantity: 5, UnitPrice: 0.767, LineTotal: 3.835},
			{Name: "Trans-Clear Windscreen 6x6x3", Quantity: 6, UnitPrice: 2.517, LineTotal: 15.102},
		},
	}
	rec.GrandTotal = rec.DerivedGrandTotal()
	return rec
}

// SimpleOrder returns a two-item order with the given charges, useful for
// edge cases.
func SimpleOrder(subtotal, shipping, credit float64) order.Record {
	rec := order.Record{
		OrderID:      "simple",
		Currency:     "AUD",
		ExchangeRate: 1.0,
		Subtotal:     subtotal,
		Shipping:     shipping,
		Credit:       credit,
		Items: []order.LineItem{
			{Name: "Plate 2x2", Quantity: 10, UnitPrice: subtotal * 0.04, LineTotal: subtotal * 0.4},
			{Name: "Brick 1x4", Quantity: 4, UnitPrice: subtotal * 0.15, LineTotal: subtotal * 0.6},
		},
	}
	rec.GrandTotal = rec.DerivedGrandTotal()
	return rec
}
