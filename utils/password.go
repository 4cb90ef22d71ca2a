package utils

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/nbrandt/newsboard/config"
)

// HashPassword returns the bcrypt hash of the password. The cost comes from
// configuration so deployments can raise it; out-of-range values fall back
// to the library default.
func HashPassword(password string) (string, error) {
	cost := config.Get().BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
