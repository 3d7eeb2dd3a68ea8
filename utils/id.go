package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

func GenerateUUID() string {
	return uuid.New().String()
}

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ReferralCode builds prefix + first three letters of name + three random
// base36 characters, e.g. REFERJOH4K9.
func ReferralCode(prefix, name string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(prefix))

	name = strings.ToUpper(strings.TrimSpace(name))
	if len(name) > 3 {
		name = name[:3]
	}
	b.WriteString(name)

	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}
