package utils

import (
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/pkg/errors"
)

// CleanEmailAddresses trims and syntax-checks a list of addresses. The field
// name is only used to build the error message.
func CleanEmailAddresses(field string, addresses []string) ([]string, error) {
	cleaned := make([]string, 0, len(addresses))
	for _, address := range addresses {
		address = strings.TrimSpace(address)
		if address == "" {
			continue
		}
		validation := mailvalidate.ValidateEmailSyntax(address)
		if !validation.IsValid {
			return nil, errors.Errorf("%s contains an invalid email address: %s", field, address)
		}
		cleaned = append(cleaned, address)
	}
	return cleaned, nil
}

func IsValidEmailSyntax(address string) bool {
	return mailvalidate.ValidateEmailSyntax(strings.TrimSpace(address)).IsValid
}

// FormatSenderHeader renders a From header value, quoting the display name
// when one is present.
func FormatSenderHeader(fromName, fromEmail string) string {
	if fromName == "" {
		return fromEmail
	}
	return fmt.Sprintf("%q <%s>", fromName, fromEmail)
}

func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}

	email = strings.TrimSpace(email)

	// Handle potential angle brackets in email (e.g., "Name <email@domain.com>")
	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		startIdx := strings.LastIndex(email, "<") + 1
		endIdx := strings.LastIndex(email, ">")
		if startIdx > 0 && endIdx > startIdx {
			email = email[startIdx:endIdx]
		}
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(parts[1]))
}

func UniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))

	for _, email := range emails {
		if _, exists := seen[email]; !exists {
			seen[email] = struct{}{}
			unique = append(unique, email)
		}
	}

	return unique
}
