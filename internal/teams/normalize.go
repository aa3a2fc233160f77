// Package teams canonicalizes team display names so that records from
// independently maintained datasets (results feed vs forecasts) can be
// joined on team-name equality.
package teams

// aliases maps known display-name variants to one canonical spelling.
// The table is fixed and shipped with the binary; it is applied to both
// sides of every match-key comparison.
var aliases = map[string]string{
	"LA Clippers": "Los Angeles Clippers",
}

// Normalize returns the canonical spelling for a team display name.
// Total and pure: names without a known alias pass through unchanged.
func Normalize(name string) string {
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}
