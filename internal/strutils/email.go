package strutils

import (
	"fmt"
	"strings"
)

// Trims whitespace and converts the address to lowercase
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(normalized, "@")
	if !ok {
		return "", fmt.Errorf("missing @ in email. input: '%s'", email)
	}
	if local == "" || domain == "" {
		return "", fmt.Errorf("empty local part or domain in email. input: '%s'", email)
	}
	if strings.Contains(domain, "@") {
		return "", fmt.Errorf("multiple @ in email. input: '%s'", email)
	}
	if strings.ContainsAny(normalized, " \t\r\n") {
		return "", fmt.Errorf("whitespace in email. input: '%s'", email)
	}

	return normalized, nil
}

// The part of a normalized email before the @
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Whether a normalized email belongs to domain or one of its subdomains
func EmailHasDomain(email string, domain string) bool {
	_, emailDomain, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}

	domain = strings.ToLower(domain)
	return emailDomain == domain || strings.HasSuffix(emailDomain, "."+domain)
}
