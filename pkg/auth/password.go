package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	specialChars      = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// HashPassword returns a salted bcrypt hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type Strength struct {
	Score    int      `json:"score"`
	Level    string   `json:"strength"`
	Feedback []string `json:"feedback"`
	IsStrong bool     `json:"is_strong"`
}

// PasswordStrength scores a password from 0 to 5, one point each for length,
// upper case, lower case, digits and special characters.
func PasswordStrength(password string) Strength {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}

	s := Strength{Feedback: []string{}}
	check := func(ok bool, feedback string) {
		if ok {
			s.Score++
		} else {
			s.Feedback = append(s.Feedback, feedback)
		}
	}
	check(len([]rune(password)) >= MinPasswordLength, "รหัสผ่านควรมีอย่างน้อย 8 ตัวอักษร")
	check(hasUpper, "ควรมีตัวอักษรใหญ่")
	check(hasLower, "ควรมีตัวอักษรเล็ก")
	check(hasDigit, "ควรมีตัวเลข")
	check(hasSpecial, "ควรมีอักขระพิเศษ")

	switch {
	case s.Score <= 2:
		s.Level = "อ่อนแอ"
	case s.Score == 3:
		s.Level = "ปานกลาง"
	case s.Score == 4:
		s.Level = "ดี"
	default:
		s.Level = "แข็งแกร่งมาก"
	}
	s.IsStrong = s.Score >= 4
	return s
}
