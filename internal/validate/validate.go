package validate

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	rePhone  = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,19}$`)
	rePostal = regexp.MustCompile(`^[A-Za-z0-9 -]{2,10}$`)
)

// MaxQty caps a single cart line.
const MaxQty = 99

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// ID validates a resource identifier (product, order, user, conversation ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Text trims s and accepts it when it is non-empty and at most max runes.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > max {
		return s, false
	}
	return s, true
}

// Optional is Text that also accepts the empty string.
func Optional(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s) <= max
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePhone.MatchString(s)
}

func PostalCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || rePostal.MatchString(s)
}

// Qty accepts 1..MaxQty.
func Qty(n int) bool { return n >= 1 && n <= MaxQty }

// DocumentURL accepts an absolute http(s) URL.
func DocumentURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2048 {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return s, true
}
