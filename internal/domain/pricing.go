package domain

import "math"

// ServiceFeeRate is applied to goods plus delivery at reservation time.
const ServiceFeeRate = 0.015

// Pricing is the breakdown frozen into an Order when it is created. It is
// never recomputed from the catalog afterward, so a seller repricing a
// listing cannot change what an existing reservation owes.
type Pricing struct {
	ProductPrice  float64
	DeliveryPrice float64
	DiscountValue float64
	ServiceFee    float64
	TotalAmount   float64
}

// NewPricing snapshots the breakdown for a product at the given discount.
// total = product + delivery - discount + fee, fee = 1.5% of goods plus
// delivery (discounts do not shrink the fee).
func NewPricing(productPrice, deliveryPrice, discount float64) Pricing {
	fee := round2((productPrice + deliveryPrice) * ServiceFeeRate)
	return Pricing{
		ProductPrice:  productPrice,
		DeliveryPrice: deliveryPrice,
		DiscountValue: discount,
		ServiceFee:    fee,
		TotalAmount:   round2(productPrice + deliveryPrice - discount + fee),
	}
}

// EffectivePrice picks the price a reservation is made at. Test mode uses the
// seller's test price when one is set.
func (p Product) EffectivePrice(testMode bool) float64 {
	if testMode && p.TestPrice != nil {
		return *p.TestPrice
	}
	return p.Price
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
