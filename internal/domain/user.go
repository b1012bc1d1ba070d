package domain

import "time"

type User struct {
	ID           string    `bson:"_id" json:"_id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	IsAdmin      bool      `bson:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin}
}
