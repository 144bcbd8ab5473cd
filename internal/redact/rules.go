package redact

// DefaultRules returns the built-in redaction rules. Patterns favor recall
// over precision; a false positive costs a placeholder, a false negative
// leaks a value.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "email",
			Description: "Email address",
			Pattern:     `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
			Placeholder: "[EMAIL]",
		},
		{
			ID:          "payment-card",
			Description: "Payment card number, with or without separators",
			Pattern:     `\b\d(?:[ \-]?\d){12,18}\b`,
			Placeholder: "[CARD]",
		},
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			Pattern:     `\b(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}\b`,
			Placeholder: "[AWS_KEY]",
		},
		{
			ID:          "generic-api-key",
			Description: "API key assignment",
			Pattern:     `(?i)(?:api[_\-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,64}['"]?`,
			Placeholder: "[API_KEY]",
		},
		{
			ID:          "github-token",
			Description: "GitHub token",
			Pattern:     `\b(?:ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}\b`,
			Placeholder: "[TOKEN]",
		},
		{
			ID:          "jwt",
			Description: "JSON Web Token",
			Pattern:     `\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`,
			Placeholder: "[TOKEN]",
		},
		{
			ID:          "private-key",
			Description: "PEM private key header",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[\- ]BLOCK)?-----(?s:.*?)-----END (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[\- ]BLOCK)?-----`,
			Placeholder: "[PRIVATE_KEY]",
		},
	}
}
