package servicedef

import (
	"fmt"
	"net/http"
	"strings"
)

// DefaultCookieName is the cookie a site reads the requested culture from.
const DefaultCookieName = ".AspNetCore.Culture"

const (
	culturePrefix   = "c="
	uiCulturePrefix = "uic="
)

// LocaleCookie is the locale selection sent to a site under test.
type LocaleCookie struct {
	Name  string
	Value string
}

// NewLocaleCookie selects the same culture and UI culture.
func NewLocaleCookie(locale string) LocaleCookie {
	return NewLocaleCookieWithUICulture(locale, locale)
}

func NewLocaleCookieWithUICulture(culture, uiCulture string) LocaleCookie {
	return LocaleCookie{
		Name:  DefaultCookieName,
		Value: culturePrefix + culture + "|" + uiCulturePrefix + uiCulture,
	}
}

// HTTPCookie converts the cookie for use with a cookie jar.
func (c LocaleCookie) HTTPCookie() *http.Cookie {
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

// ParseLocaleCookieValue is the inverse of NewLocaleCookieWithUICulture. If only one of the
// two parts is present, it is used for both.
func ParseLocaleCookieValue(value string) (culture, uiCulture string, err error) {
	for _, part := range strings.Split(value, "|") {
		switch {
		case strings.HasPrefix(part, uiCulturePrefix):
			uiCulture = strings.TrimPrefix(part, uiCulturePrefix)
		case strings.HasPrefix(part, culturePrefix):
			culture = strings.TrimPrefix(part, culturePrefix)
		}
	}
	if culture == "" && uiCulture == "" {
		return "", "", fmt.Errorf("malformed locale cookie value %q", value)
	}
	if culture == "" {
		culture = uiCulture
	}
	if uiCulture == "" {
		uiCulture = culture
	}
	return culture, uiCulture, nil
}
