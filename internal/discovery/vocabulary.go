package discovery

// Entry is one vocabulary column: its sanitized key and every raw spelling seen.
type Entry struct {
	Key   string
	Names []string
}

// Vocabulary is the ordered, deduplicated union of column names. Names are
// merged by their sanitized form, so " Gene ID " and "Gene-ID" share one entry.
type Vocabulary struct {
	index   map[string]int
	entries []Entry
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]int)}
}

// Add records a raw column name and returns its key. Names that sanitize to
// the empty string (unnamed index columns, punctuation only) are ignored.
func (v *Vocabulary) Add(name string) string {
	key := Sanitize(name)
	if key == "" {
		return ""
	}

	i, ok := v.index[key]
	if !ok {
		v.index[key] = len(v.entries)
		v.entries = append(v.entries, Entry{Key: key, Names: []string{name}})
		return key
	}

	for _, existing := range v.entries[i].Names {
		if existing == name {
			return key
		}
	}
	v.entries[i].Names = append(v.entries[i].Names, name)
	return key
}

// Keys returns the sanitized keys in first-seen order.
func (v *Vocabulary) Keys() []string {
	keys := make([]string, len(v.entries))
	for i, e := range v.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in first-seen order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	for i, e := range v.entries {
		out[i] = Entry{Key: e.Key, Names: append([]string(nil), e.Names...)}
	}
	return out
}

// Lookup returns the entry for a sanitized key.
func (v *Vocabulary) Lookup(key string) (Entry, bool) {
	i, ok := v.index[key]
	if !ok {
		return Entry{}, false
	}
	return v.entries[i], true
}

// Len returns the number of distinct columns.
func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// KeysOf returns the distinct sanitized keys of columns, in column order.
func KeysOf(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	keys := make([]string, 0, len(columns))
	for _, c := range columns {
		key := Sanitize(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
