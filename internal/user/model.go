package user

import "time"

// User is the account anchor: one phone number, one wallet. The PIN
// authorizes money movements; the password is for session login only.
// Both are stored as bcrypt hashes.
type User struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	PIN         string    `json:"-"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Password    string    `json:"-"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Merchant wraps a User with the business identity withdrawals are routed
// to. The merchant code is bcrypt-hashed like a PIN.
type Merchant struct {
	ID           int64  `json:"id"`
	OwnerID      int64  `json:"owner_id"`
	BusinessName string `json:"business_name"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email,omitempty"`
	MerchantCode string `json:"-"`
	RegisteredBy *int64 `json:"registered_by,omitempty"`
}

// Partner onboards clients and merchants.
type Partner struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	PartnerCode string `json:"-"`
}

// Roles as carried in JWT claims.
const (
	RoleClient   = "client"
	RoleMerchant = "merchant"
	RolePartner  = "partner"
	RoleAdmin    = "admin"
)
