package service

import (
	"strings"
	"unicode"
)

const minPasswordLen = 8

// commonPasswords is a short deny-list of the passwords most often seen in
// credential dumps.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {},
	"12345678": {}, "123456789": {}, "1234567890": {}, "87654321": {},
	"qwerty123": {}, "qwertyuiop": {}, "1q2w3e4r": {}, "1qaz2wsx": {},
	"iloveyou": {}, "sunshine": {}, "princess": {}, "football": {},
	"baseball": {}, "superman": {}, "trustno1": {}, "welcome1": {},
	"letmein1": {}, "admin123": {}, "administrator": {}, "11111111": {},
	"00000000": {}, "abc12345": {}, "abcd1234": {}, "starwars": {},
	"whatever": {}, "computer": {}, "testpass123": {}, "qwerty12": {},
}

// passwordProblems returns every reason password is too weak. The attribute
// check compares against the username and the local part of the email.
func passwordProblems(password, username, email string) []string {
	var out []string
	if len([]rune(password)) < minPasswordLen {
		out = append(out, "must contain at least 8 characters")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		out = append(out, "must not be entirely numeric")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		out = append(out, "is too common")
	}
	local, _, _ := strings.Cut(email, "@")
	switch {
	case tooSimilar(password, username):
		out = append(out, "is too similar to the username")
	case tooSimilar(password, local):
		out = append(out, "is too similar to the email address")
	}
	return out
}

// tooSimilar reports whether one of password and attr contains the other,
// ignoring case. Attributes shorter than three characters are ignored.
func tooSimilar(password, attr string) bool {
	p := strings.ToLower(password)
	a := strings.ToLower(strings.TrimSpace(attr))
	if len([]rune(a)) < 3 || p == "" {
		return false
	}
	return strings.Contains(p, a) || strings.Contains(a, p)
}
