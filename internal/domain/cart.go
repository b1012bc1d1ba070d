package domain

import "time"

type Cart struct {
	ID              string           `bson:"_id,omitempty" json:"-"`
	UserID          string           `bson:"user_id" json:"userId"`
	Items           []CartItem       `bson:"items" json:"cartItems"`
	ShippingAddress *ShippingAddress `bson:"shipping_address,omitempty" json:"shippingAddress,omitempty"`
	PaymentMethod   PaymentMethod    `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`
	CreatedAt       time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updated_at" json:"updatedAt"`
}

// CartItem carries the product data captured when the line was last touched.
// StockSnapshot is informational; stock is re-read before every increase.
type CartItem struct {
	ProductID     string    `bson:"product_id" json:"_id"`
	Name          string    `bson:"name" json:"name"`
	Slug          string    `bson:"slug" json:"slug"`
	Image         string    `bson:"image" json:"image"`
	UnitPrice     float64   `bson:"unit_price" json:"price"`
	Quantity      int       `bson:"quantity" json:"quantity"`
	StockSnapshot int       `bson:"stock_snapshot" json:"countInStock"`
	AddedAt       time.Time `bson:"added_at" json:"addedAt"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) Item(productID string) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type ShippingAddress struct {
	FullName   string    `bson:"full_name" json:"fullName" validate:"required"`
	Address    string    `bson:"address" json:"address" validate:"required"`
	City       string    `bson:"city" json:"city" validate:"required"`
	PostalCode string    `bson:"postal_code" json:"postalCode" validate:"required"`
	Country    string    `bson:"country" json:"country" validate:"required"`
	Location   *Location `bson:"location,omitempty" json:"location,omitempty"`
}

func (a ShippingAddress) Validate() error {
	if err := validate.Struct(a); err != nil {
		return validationErrorFrom(err)
	}
	if a.Location != nil {
		if a.Location.Lat < -90 || a.Location.Lat > 90 {
			return &ValidationError{Field: "location.lat", Message: "must be between -90 and 90"}
		}
		if a.Location.Lng < -180 || a.Location.Lng > 180 {
			return &ValidationError{Field: "location.lng", Message: "must be between -180 and 180"}
		}
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodPayPal      PaymentMethod = "PayPal"
	PaymentMethodMercadoPago PaymentMethod = "MercadoPago"
	PaymentMethodCard        PaymentMethod = "Tarjeta"
	PaymentMethodWhatsApp    PaymentMethod = "WhatsApp"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPayPal, PaymentMethodMercadoPago, PaymentMethodCard, PaymentMethodWhatsApp:
		return true
	}
	return false
}

// CapturedByPayPal reports whether the method settles through a PayPal capture.
func (m PaymentMethod) CapturedByPayPal() bool {
	return m == PaymentMethodPayPal || m == PaymentMethodCard
}

func (m PaymentMethod) String() string {
	return string(m)
}
