package domain

import "time"

// Address is a shipping address owned by the signed-in user.
type Address struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" validate:"required,max=100"`
	Details string `json:"details" validate:"required,max=500"`
	Phone   string `json:"phone" validate:"required,numeric,min=6,max=20"`
	City    string `json:"city" validate:"required,max=100"`
}

// PaymentMethod selects between the two order paths.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// Order is a placed order as acknowledged by the upstream.
type Order struct {
	ID              string        `json:"id"`
	CartID          string        `json:"cartId,omitempty"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	TotalPrice      float64       `json:"totalPrice"`
	ShippingAddress Address       `json:"shippingAddress"`
	CreatedAt       time.Time     `json:"createdAt,omitzero"`
}

// CheckoutRedirect points the browser at the hosted payment page.
type CheckoutRedirect struct {
	URL string `json:"url"`
}

// Confirmation records the last successful checkout submission.
type Confirmation struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Cart          Cart          `json:"cart"`
	Address       Address       `json:"address"`
	Order         *Order        `json:"order,omitempty"`
	RedirectURL   string        `json:"redirectUrl,omitempty"`
	SubmittedAt   time.Time     `json:"submittedAt"`
}
