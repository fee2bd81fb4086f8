package normalizer

import (
	"fmt"
	"regexp"
	"strings"
)

// CountryRule rewrites the text matched by Pattern to Name.
type CountryRule struct {
	Pattern *regexp.Regexp
	Name    string
}

// NewCountryRule compiles a user supplied rule.
func NewCountryRule(pattern, name string) (CountryRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return CountryRule{}, fmt.Errorf("country rule %q: %w", pattern, err)
	}
	return CountryRule{Pattern: re, Name: name}, nil
}

// builtinCountryRules maps local-language and abbreviated names seen in exports
// to English country names. Order matters: the first match wins.
var builtinCountryRules = []CountryRule{
	{regexp.MustCompile(`(^Espanya$|^España$)`), "Spain"},
	{regexp.MustCompile(`(^UK$|^United Kingdom$|^Y Deyrnas Unedig$|^Royaume-Uni$|^Великобритания$)`), "United Kingdom"},
	{regexp.MustCompile(`(^USA$|^United States$)`), "United States"},
	{regexp.MustCompile(`(^New Zealand$|^Aotearoa$)`), "New Zealand"},
	{regexp.MustCompile(`(^Italia$|^Italie$)`), "Italy"},
	{regexp.MustCompile(`(^México$)`), "Mexico"},
	{regexp.MustCompile(`(^Deutschland$)`), "Germany"},
	{regexp.MustCompile(`^Singapore \d+`), "Singapore"},
	{regexp.MustCompile(`(^Türkiye$)`), "Turkey"},
	{regexp.MustCompile(`(^Perú$|^Peru$|^Perù$)`), "Peru"},
	{regexp.MustCompile(`(^Kolumbien$)`), "Colombia"},
	{regexp.MustCompile(`(^Bolivie$)`), "Bolivia"},
	{regexp.MustCompile(`(^Ελλάδα$|^Hellas$)`), "Greece"},
	{regexp.MustCompile(`(^Panamá$)`), "Panama"},
	{regexp.MustCompile(`(^Nederland$)`), "Netherlands"},
	{regexp.MustCompile(`(^België$)`), "Belgium"},
	{regexp.MustCompile(`(^\d+ Magyarország$)`), "Hungary"},
	{regexp.MustCompile(`(^Österreich$)`), "Austria"},
}

// BuiltinCountryRules returns a copy of the built-in rule table
func BuiltinCountryRules() []CountryRule {
	return append([]CountryRule(nil), builtinCountryRules...)
}

// CountryNormalizer applies user rules first, then the built-in table.
type CountryNormalizer struct {
	rules []CountryRule
}

func NewCountryNormalizer(extra ...CountryRule) *CountryNormalizer {
	rules := make([]CountryRule, 0, len(extra)+len(builtinCountryRules))
	rules = append(rules, extra...)
	rules = append(rules, builtinCountryRules...)
	return &CountryNormalizer{rules: rules}
}

// Normalize substitutes the first matching rule into raw. No match returns raw unchanged.
func (c *CountryNormalizer) Normalize(raw string) string {
	for _, r := range c.rules {
		if r.Pattern.MatchString(raw) {
			return r.Pattern.ReplaceAllLiteralString(raw, r.Name)
		}
	}
	return raw
}

// CountryFromAddress returns the text after the last ", " of an address.
func CountryFromAddress(address string) string {
	if i := strings.LastIndex(address, ", "); i >= 0 {
		return address[i+2:]
	}
	return address
}
