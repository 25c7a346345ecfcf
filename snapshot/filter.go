package snapshot

// filterMode tracks which list the filter is operating as. An unset filter
// allows everything; the first Allow call flips it to an allowlist, the first
// Deny call to a denylist. Allow and Deny are inverses: allowing a denied
// type removes it from the denylist and vice versa.
type filterMode uint8

const (
	filterUnset filterMode = iota
	filterAllowlist
	filterDenylist
)

type typeFilter struct {
	mode filterMode
	set  map[string]struct{}
}

func newTypeFilter() typeFilter {
	return typeFilter{set: make(map[string]struct{})}
}

func (f *typeFilter) allow(typePath string) {
	switch f.mode {
	case filterDenylist:
		delete(f.set, typePath)
	default:
		f.mode = filterAllowlist
		f.set[typePath] = struct{}{}
	}
}

func (f *typeFilter) deny(typePath string) {
	switch f.mode {
	case filterAllowlist:
		delete(f.set, typePath)
	default:
		f.mode = filterDenylist
		f.set[typePath] = struct{}{}
	}
}

func (f *typeFilter) allowAll() {
	f.mode = filterUnset
	f.set = make(map[string]struct{})
}

func (f *typeFilter) denyAll() {
	f.mode = filterAllowlist
	f.set = make(map[string]struct{})
}

func (f *typeFilter) allowed(typePath string) bool {
	_, in := f.set[typePath]
	switch f.mode {
	case filterAllowlist:
		return in
	case filterDenylist:
		return !in
	default:
		return true
	}
}
