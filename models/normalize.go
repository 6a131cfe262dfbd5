// ABOUTME: Normalisation helpers for company names, domains and emails
// ABOUTME: Produces the comparison keys used for matching and de-duplication
package models

import (
	"strings"
)

// NormalizeDomain lowercases and strips scheme, "www.", port and path.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}

var companySuffixes = []string{" inc", " llc", " ltd", " gmbh", " corp", " corporation", " co", " sa", " ag", " plc"}

// NormalizeCompanyName lowercases, drops punctuation and common legal suffixes.
func NormalizeCompanyName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '"', '\'':
			return -1
		}
		return r
	}, n)
	n = strings.Join(strings.Fields(n), " ")
	for _, s := range companySuffixes {
		if strings.HasSuffix(n, s) && len(n) > len(s) {
			n = strings.TrimSpace(strings.TrimSuffix(n, s))
			break
		}
	}
	return n
}

// NormalizeEmail converts email to lowercase for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain extracts the domain part of an email address.
func EmailDomain(email string) string {
	parts := strings.Split(NormalizeEmail(email), "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// SameCompany reports whether a (name, domain) reference points at company.
// Domains decide when both sides have one; otherwise names are compared.
func SameCompany(name, domain string, company Company) bool {
	d := NormalizeDomain(domain)
	cd := NormalizeDomain(company.Domain)
	if d != "" && cd != "" {
		return d == cd
	}
	n := NormalizeCompanyName(name)
	return n != "" && n == NormalizeCompanyName(company.Name)
}

// FoldSet lowercases and trims a string set, dropping empties.
func FoldSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out[v] = true
		}
	}
	return out
}
