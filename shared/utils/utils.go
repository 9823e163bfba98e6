package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// AccountNumberLength is the number of digits in an account number.
const AccountNumberLength = 12

var accountNumberSpace = big.NewInt(1_000_000_000_000)

// GenerateAccountNumber generates a zero-padded 12-digit account number.
// Numbers are random, not unique; the store's key constraint decides uniqueness.
func GenerateAccountNumber() string {
	num, err := rand.Int(rand.Reader, accountNumberSpace)
	if err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return fmt.Sprintf("%0*d", AccountNumberLength, num.Int64())
}

// ValidateAccountNumber validates the account number format
func ValidateAccountNumber(accountNumber string) bool {
	if len(accountNumber) != AccountNumberLength {
		return false
	}
	for _, c := range accountNumber {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
