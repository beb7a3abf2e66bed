package staging

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PIIType is a category of personal data detected in an object key.
type PIIType string

// PII categories.
const (
	PIIPersonalIdentifier PIIType = "PERSONAL_IDENTIFIER"
	PIIFinancialData      PIIType = "FINANCIAL_DATA"
	PIIContactInfo        PIIType = "CONTACT_INFO"
	PIIHealthData         PIIType = "HEALTH_DATA"
	PIIBiometricData      PIIType = "BIOMETRIC_DATA"
	PIINone               PIIType = "NONE"
)

// CIALevel rates confidentiality, integrity or availability.
type CIALevel string

// CIA levels.
const (
	CIAHigh   CIALevel = "HIGH"
	CIAMedium CIALevel = "MEDIUM"
	CIALow    CIALevel = "LOW"
)

type piiRule struct {
	kind     PIIType
	patterns []*regexp.Regexp
}

// piiRules are checked in order; the order is also the order of
// Classification.PII.
var piiRules = []piiRule{
	{PIIPersonalIdentifier, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(nric|passport|identity|id_number|national_id|user)`),
		regexp.MustCompile(`[STFGstfg]\d{7}[A-Za-z]`),
	}},
	{PIIFinancialData, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(account|transaction|payment|salary|income|credit)`),
		regexp.MustCompile(`\d{10,16}`),
	}},
	{PIIContactInfo, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(email|phone|address|contact|mobile)`),
		regexp.MustCompile(`[\w.-]+@[\w.-]+\.[a-zA-Z]{2,}`),
		regexp.MustCompile(`\+65\d{8}`),
	}},
	{PIIHealthData, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(medical|health|patient|diagnosis|treatment)`),
	}},
	{PIIBiometricData, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(biometric|fingerprint|facial|iris|voice)`),
	}},
}

// Classification is the security profile of one object.
type Classification struct {
	PII             []PIIType
	Confidentiality CIALevel
	Integrity       CIALevel
	Availability    CIALevel
	Domain          string
}

// HasPII reports whether any PII category was detected.
func (c Classification) HasPII() bool {
	return len(c.PII) > 0 && c.PII[0] != PIINone
}

func (c Classification) has(kind PIIType) bool {
	for _, p := range c.PII {
		if p == kind {
			return true
		}
	}
	return false
}

// PIIStrings returns the detected categories as strings.
func (c Classification) PIIStrings() []string {
	out := make([]string, len(c.PII))
	for i, p := range c.PII {
		out[i] = string(p)
	}
	return out
}

// Classify derives a classification from an object key. Contact details
// alone rate MEDIUM; any other PII raises confidentiality and integrity to
// HIGH. Keys with no match are NONE and rate LOW.
func Classify(key string) Classification {
	c := Classification{Domain: domainOf(key)}
	for _, rule := range piiRules {
		for _, re := range rule.patterns {
			if re.MatchString(key) {
				c.PII = append(c.PII, rule.kind)
				break
			}
		}
	}
	if len(c.PII) == 0 {
		c.PII = []PIIType{PIINone}
		c.Confidentiality, c.Integrity, c.Availability = CIALow, CIALow, CIALow
		return c
	}

	c.Confidentiality, c.Integrity, c.Availability = CIAMedium, CIAMedium, CIAMedium
	if c.has(PIIPersonalIdentifier) || c.has(PIIFinancialData) || c.has(PIIHealthData) || c.has(PIIBiometricData) {
		c.Confidentiality = CIAHigh
		c.Integrity = CIAHigh
	}
	if c.has(PIIFinancialData) {
		c.Availability = CIAHigh
	}
	return c
}

// Labels returns the platform labels for c, followed by the extra
// compliance tags.
func (c Classification) Labels(compliance []string) []string {
	labels := append([]string(nil), compliance...)
	labels = append(labels,
		"cia-confidentiality-"+strings.ToLower(string(c.Confidentiality)),
		"cia-integrity-"+strings.ToLower(string(c.Integrity)),
		"cia-availability-"+strings.ToLower(string(c.Availability)),
	)
	if c.Domain != "" {
		labels = append(labels, "data-domain-"+c.Domain)
	}
	for _, p := range c.PII {
		if p != PIINone {
			labels = append(labels, "pii-"+strings.ToLower(string(p)))
		}
	}
	return labels
}

// Description renders the classification as an asset description.
func (c Classification) Description(owner string) string {
	var b strings.Builder
	b.WriteString("Staging data file\n\nSecurity classification:\n")
	fmt.Fprintf(&b, "- Confidentiality: %s\n", c.Confidentiality)
	fmt.Fprintf(&b, "- Integrity: %s\n", c.Integrity)
	fmt.Fprintf(&b, "- Availability: %s\n", c.Availability)
	fmt.Fprintf(&b, "\nPII types: %s\n", strings.Join(c.PIIStrings(), ", "))
	if owner != "" {
		fmt.Fprintf(&b, "Business owner: %s\n", owner)
	}
	if c.Domain != "" {
		fmt.Fprintf(&b, "Data domain: %s\n", c.Domain)
	}
	return b.String()
}

// domainOf is the object's base name without extensions, lowercased and
// reduced to label-safe characters.
func domainOf(key string) string {
	base := path.Base(strings.TrimSuffix(key, "/"))
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "." || base == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
}

// ownerUser maps a display name to a platform username, "Head of Finance"
// becoming "head-of-finance".
func ownerUser(owner string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(owner)), " ", "-")
}
