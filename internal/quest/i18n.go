package quest

// Supported locales. The mapping is open: entries for other locales pass
// through load/save untouched.
const (
	LocaleEnUS = "en-US"
	LocaleDeDE = "de-DE"
)

// Text is a locale-keyed display string.
type Text map[string]string

// Get returns the text for the given locale, empty if unset.
func (t Text) Get(locale string) string {
	return t[locale]
}

// Clone returns a copy of the text map, preserving nil.
func (t Text) Clone() Text {
	if t == nil {
		return nil
	}
	out := make(Text, len(t))
	for locale, s := range t {
		out[locale] = s
	}
	return out
}
