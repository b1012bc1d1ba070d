package domain

import "time"

type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product"`
	Name      string  `bson:"name" json:"name"`
	Slug      string  `bson:"slug" json:"slug"`
	Image     string  `bson:"image" json:"image"`
	UnitPrice float64 `bson:"unit_price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

// Prices is the output of the pricing calculator, already rounded to cents.
type Prices struct {
	ItemsPrice    float64 `bson:"items_price" json:"itemsPrice"`
	ShippingPrice float64 `bson:"shipping_price" json:"shippingPrice"`
	TaxPrice      float64 `bson:"tax_price" json:"taxPrice"`
	TotalPrice    float64 `bson:"total_price" json:"totalPrice"`
}

type PaymentResult struct {
	Provider     string `bson:"provider" json:"provider"`
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time" json:"update_time"`
	EmailAddress string `bson:"email_address" json:"email_address"`
}

type Order struct {
	ID              string          `bson:"_id" json:"_id"`
	UserID          string          `bson:"user_id" json:"user"`
	Items           []OrderItem     `bson:"items" json:"orderItems"`
	ShippingAddress ShippingAddress `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `bson:"payment_method" json:"paymentMethod"`
	Prices          `bson:",inline"`
	IsPaid          bool           `bson:"is_paid" json:"isPaid"`
	PaidAt          *time.Time     `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	PaymentResult   *PaymentResult `bson:"payment_result,omitempty" json:"paymentResult,omitempty"`
	IsDelivered     bool           `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt     *time.Time     `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updatedAt"`
}

// NewOrder freezes the cart lines into an order. Prices must come from the
// pricing calculator over the same lines.
func NewOrder(id, userID string, lines []CartItem, addr ShippingAddress, method PaymentMethod, prices Prices, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "orderItems", Message: "cart is empty"}
	}
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, &ValidationError{Field: "orderItems", Message: "item without product"}
		}
		if l.Quantity < 1 {
			return nil, &ValidationError{Field: "orderItems", Message: "quantity must be at least 1"}
		}
		if l.UnitPrice < 0 {
			return nil, &ValidationError{Field: "orderItems", Message: "price must not be negative"}
		}
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Slug:      l.Slug,
			Image:     l.Image,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, &ValidationError{Field: "paymentMethod", Message: "unknown payment method"}
	}

	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   method,
		Prices:          prices,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) Status() OrderStatus {
	switch {
	case o.IsDelivered:
		return OrderStatusDelivered
	case o.IsPaid:
		return OrderStatusPaid
	default:
		return OrderStatusCreated
	}
}

// VisibleTo reports whether the actor may read or pay the order.
func (o *Order) VisibleTo(a Actor) bool {
	return a.IsAdmin || (a.UserID != "" && a.UserID == o.UserID)
}
