package dto

import "time"

type CreateContactRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required,min=7,max=20"`
	Address     string `json:"address" binding:"omitempty,max=500"`
	Timezone    string `json:"timezone" binding:"omitempty,max=64"`
}

// UpdateContactRequest uses pointers so an omitted field and a field sent
// as an empty string stay distinguishable: nil leaves the stored value
// alone, while an explicit "" clears optional fields like address.
type UpdateContactRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Email       *string `json:"email" binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,min=7,max=20"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
	Timezone    *string `json:"timezone" binding:"omitempty,max=64"`
}

type ContactResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Address     string    `json:"address,omitempty"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContactFilter describes the structured query consumed by the repository
// when listing contacts. Zero values mean "no filter".
type ContactFilter struct {
	Page      int
	Limit     int
	Sort      string
	Order     string
	Search    string
	Timezone  string
	StartDate *time.Time
	EndDate   *time.Time
}
