package auth

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret bcrypt-hashes a PIN, password, or merchant code.
func HashSecret(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifySecret compares a plaintext secret against its stored hash.
func VerifySecret(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// GeneratePIN returns a 5-digit PIN, SMS'd to the user at registration.
func GeneratePIN() string {
	return randomDigits(10000, 90000)
}

// GenerateMerchantCode returns the 6-digit code a merchant presents to
// authorize withdrawals to their account.
func GenerateMerchantCode() string {
	return randomDigits(100000, 900000)
}

func randomDigits(min, span int64) string {
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken
		panic(err)
	}
	return big.NewInt(min + n.Int64()).String()
}
