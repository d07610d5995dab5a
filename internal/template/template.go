// Package template renders {{variable}} placeholders in campaign subjects and bodies.
package template

import (
	"regexp"
	"sort"
	"strings"
)

// Variables maps placeholder names to their display values.
// A name missing from the map is undefined.
type Variables map[string]string

var (
	tokenPattern    = regexp.MustCompile(`\{\{[^}]+\}\}`)
	leftoverPattern = regexp.MustCompile(`\{\{[^}]*\}\}`)
)

// Replace substitutes every defined variable and deletes any token left over.
// Names match case-insensitively and may be padded with spaces or tabs.
func Replace(content string, vars Variables) string {
	result := content

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		re, err := regexp.Compile(`(?i)\{\{[ \t]*` + regexp.QuoteMeta(key) + `[ \t]*\}\}`)
		if err != nil {
			continue
		}
		result = re.ReplaceAllLiteralString(result, vars[key])
	}

	// Deleting one token can join braces into a new one.
	for leftoverPattern.MatchString(result) {
		result = leftoverPattern.ReplaceAllLiteralString(result, "")
	}
	return result
}

// Extract returns the distinct placeholder names in first-seen order.
func Extract(content string) []string {
	matches := tokenPattern.FindAllString(content, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		name := strings.ReplaceAll(m, "{{", "")
		name = strings.TrimSpace(strings.ReplaceAll(name, "}}", ""))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Validate lists the placeholders in content that vars leaves undefined.
func Validate(content string, vars Variables) []string {
	defined := make(map[string]struct{}, len(vars))
	for k := range vars {
		defined[strings.ToLower(k)] = struct{}{}
	}

	missing := []string{}
	for _, name := range Extract(content) {
		if _, ok := defined[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// SampleVariables backs Preview.
var SampleVariables = Variables{
	"firstName":     "John",
	"lastName":      "Smith",
	"fullName":      "John Smith",
	"businessName":  "Sydney Plumbing Services",
	"email":         "john@sydneyplumbing.com.au",
	"phone":         "+61 2 1234 5678",
	"website":       "https://sydneyplumbing.com.au",
	"address":       "123 Main St, Sydney NSW 2000",
	"city":          "Sydney",
	"state":         "NSW",
	"senderName":    "Sarah Johnson",
	"senderCompany": "Local Lead AU",
	"senderEmail":   "sarah@localleadau.com",
	"senderPhone":   "+61 2 9876 5432",
	"senderWebsite": "https://localleadau.com",
}

// Preview renders content against SampleVariables.
func Preview(content string) string {
	return Replace(content, SampleVariables)
}
