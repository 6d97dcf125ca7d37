package curie

import "strings"

// Identifier system prefixes known to the resolver.
const (
	PrefixCAID          = "CAID"
	PrefixHGVS          = "HGVS"
	PrefixDBSNP         = "DBSNP"
	PrefixClinVar       = "CLINVARVARIANT"
	PrefixMyVariantHG19 = "MYVARIANT_HG19"
	PrefixMyVariantHG38 = "MYVARIANT_HG38"
	PrefixRoboVariant   = "ROBO_VARIANT"
)

// Prefix returns the substring before the first colon.
// A curie without a colon is treated as having an empty prefix, never an
// error: the whole string is its local id.
func Prefix(c string) string {
	if i := strings.IndexByte(c, ':'); i >= 0 {
		return c[:i]
	}
	return ""
}

// LocalID returns the substring after the first colon, or the whole
// string when no colon is present.
func LocalID(c string) string {
	if i := strings.IndexByte(c, ':'); i >= 0 {
		return c[i+1:]
	}
	return c
}

// HasPrefix reports whether the curie's prefix matches the given prefix,
// ignoring case.
func HasPrefix(c, prefix string) bool {
	return strings.EqualFold(Prefix(c), prefix)
}

// FilterByPrefix returns the curies whose prefix matches the given prefix,
// ignoring case. Input order is preserved; curies are returned verbatim.
func FilterByPrefix(prefix string, curies []string) []string {
	var matched []string
	for _, c := range curies {
		if HasPrefix(c, prefix) {
			matched = append(matched, c)
		}
	}
	return matched
}
