package domain

// Entry is one provider's contribution to a Record.
type Entry struct {
	Name  string
	Value Value
}

// Record is the aggregated result of one submission event. Entries keep the
// order of the provider registry; the order carries no meaning for consumers.
type Record struct {
	entries []Entry
}

// NewRecord returns an empty record sized for n providers.
func NewRecord(n int) Record {
	return Record{entries: make([]Entry, 0, n)}
}

// Set stores v under name, replacing an existing entry.
func (r *Record) Set(name string, v Value) {
	for i := range r.entries {
		if r.entries[i].Name == name {
			r.entries[i].Value = v
			return
		}
	}
	r.entries = append(r.entries, Entry{Name: name, Value: v})
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Null(), false
}

func (r Record) Len() int { return len(r.entries) }

// Entries returns a copy of the record's entries.
func (r Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// MarshalJSON encodes the record as a JSON object keyed by provider name.
func (r Record) MarshalJSON() ([]byte, error) {
	fields := make([]Field, len(r.entries))
	for i, e := range r.entries {
		fields[i] = Field{Key: e.Name, Value: e.Value}
	}
	return appendJSONObject(make([]byte, 0, 512), fields)
}
