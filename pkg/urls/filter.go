package urls

import "strings"

// Filter reports whether a talk link should be followed.
type Filter func(URL) bool

// UnderPath keeps links nested below dir, e.g. talks of
// "/general-conference/2022/04". The landing page itself and siblings that
// merely share the prefix ("/2022/040") are dropped.
func UnderPath(dir string) Filter {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	return func(u URL) bool {
		return strings.HasPrefix(u.Location, prefix) && len(u.Location) > len(prefix)
	}
}

// Keep returns the links accepted by every filter, in their original order.
func Keep(links []URL, filters ...Filter) []URL {
	kept := make([]URL, 0, len(links))
next:
	for _, l := range links {
		for _, f := range filters {
			if !f(l) {
				continue next
			}
		}
		kept = append(kept, l)
	}
	return kept
}
