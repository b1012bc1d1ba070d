package domain

import "time"

type Review struct {
	UserID    string    `bson:"user_id" json:"user"`
	Name      string    `bson:"name" json:"name"`
	Rating    float64   `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type Product struct {
	ID           string    `bson:"_id" json:"_id"`
	Name         string    `bson:"name" json:"name"`
	Slug         string    `bson:"slug" json:"slug"`
	Image        string    `bson:"image" json:"image"`
	Images       []string  `bson:"images" json:"images"`
	Brand        string    `bson:"brand" json:"brand"`
	Category     string    `bson:"category" json:"category"`
	Description  string    `bson:"description" json:"description"`
	Price        float64   `bson:"price" json:"price"`
	CountInStock int       `bson:"count_in_stock" json:"countInStock"`
	Rating       float64   `bson:"rating" json:"rating"`
	NumReviews   int       `bson:"num_reviews" json:"numReviews"`
	Reviews      []Review  `bson:"reviews" json:"reviews"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// AddReview appends a review and refreshes the average rating.
func (p *Product) AddReview(r Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return &ValidationError{Field: "rating", Message: "must be between 1 and 5"}
	}
	if r.Comment == "" {
		return &ValidationError{Field: "comment", Message: "is required"}
	}
	for _, existing := range p.Reviews {
		if existing.UserID == r.UserID {
			return ErrConflict
		}
	}
	p.Reviews = append(p.Reviews, r)
	p.NumReviews = len(p.Reviews)
	var sum float64
	for _, rv := range p.Reviews {
		sum += rv.Rating
	}
	p.Rating = sum / float64(p.NumReviews)
	return nil
}

// ProductFilter mirrors the storefront search screen parameters. Zero values
// mean "all".
type ProductFilter struct {
	Query     string
	Category  string
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
	Order     string
	Page      int
	PageSize  int
}

type ProductPage struct {
	Products      []Product `json:"products"`
	CountProducts int64     `json:"countProducts"`
	Page          int       `json:"page"`
	Pages         int       `json:"pages"`
}
