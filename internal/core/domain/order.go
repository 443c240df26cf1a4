package domain

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

const (
	DiscountRate = 0.20
	DeliveryFee  = 15.0
	orderIDLen   = 12
)

type (
	OrderItem struct {
		ProductID string
		Name      string
		Size      string
		Quantity  int
		Amount    float64
	}

	Order struct {
		ID       string
		UID      string
		Email    string
		Name     string
		Items    []OrderItem
		Summary  OrderSummary
		PlacedAt time.Time
	}

	OrderSummary struct {
		Total       float64
		Discount    float64
		DeliveryFee float64
		Sum         float64
	}
)

func (o Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Amount * float64(it.Quantity)
	}
	return total
}

// Summarize applies the flat discount and the delivery fee to a cart total.
func Summarize(total float64) OrderSummary {
	discount := round2(total * DiscountRate)
	return OrderSummary{
		Total:       round2(total),
		Discount:    discount,
		DeliveryFee: DeliveryFee,
		Sum:         round2(total - discount + DeliveryFee),
	}
}

// NewOrderID returns a random 12 digit decimal identifier without a leading zero.
func NewOrderID() (string, error) {
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(orderIDLen-1), nil)
	span := new(big.Int).Mul(lo, big.NewInt(9))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, lo).String(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
