package domain

import "time"

// FeaturedItem is an admin-managed promo shown on the home page.
type FeaturedItem struct {
	ID          string    `bson:"_id" json:"_id"`
	Title       string    `bson:"title" json:"title" validate:"required"`
	Description string    `bson:"description" json:"description"`
	ImageURL    string    `bson:"image_url" json:"imageUrl" validate:"required"`
	Link        string    `bson:"link" json:"link"`
	Active      bool      `bson:"active" json:"active"`
	Order       int       `bson:"order" json:"order"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

func (f FeaturedItem) Validate() error {
	if err := validate.Struct(f); err != nil {
		return validationErrorFrom(err)
	}
	return nil
}
