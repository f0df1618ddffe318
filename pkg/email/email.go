// Package email holds institutional mailbox rules.
package email

import "strings"

// Normalize trims and lowercases an address.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// HasDomain reports whether addr, after normalisation, ends with "@"+domain.
// The suffix match is exact: "x@sub.nitt.edu" does not match "nitt.edu".
func HasDomain(addr, domain string) bool {
	addr = Normalize(addr)
	suffix := "@" + strings.ToLower(strings.TrimSpace(domain))
	return len(addr) > len(suffix) && strings.HasSuffix(addr, suffix)
}

// FromRollNo derives the webmail address assigned to a student roll number.
func FromRollNo(rollNo, domain string) string {
	return Normalize(rollNo) + "@" + strings.ToLower(strings.TrimSpace(domain))
}
