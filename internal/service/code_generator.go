package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeAlphabet         = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	keyCodeLength        = 12
	referralCodeLength   = 8
	codeGenerateAttempts = 8
)

func generateRandomCode(length int) (string, error) {
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(codeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

// formatKeyCode 按 4 位分组，带可选前缀
func formatKeyCode(prefix, raw string) string {
	groups := make([]string, 0, len(raw)/4+2)
	if p := strings.ToUpper(strings.TrimSpace(prefix)); p != "" {
		groups = append(groups, p)
	}
	for i := 0; i < len(raw); i += 4 {
		end := i + 4
		if end > len(raw) {
			end = len(raw)
		}
		groups = append(groups, raw[i:end])
	}
	return strings.Join(groups, "-")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
