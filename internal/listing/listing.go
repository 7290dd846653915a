package listing

// Listing maps keys to file records while remembering the order in which
// keys were first seen, so reports come out in listing order.
//
// Adding a record whose key is already present replaces the stored record
// but keeps the key's original position. The replaced record is retained
// in Overwritten so the collision can be reported.
type Listing struct {
	keys        []Key
	records     map[Key]FileRecord
	overwritten []FileRecord
}

// New returns an empty Listing.
func New() *Listing {
	return &Listing{records: make(map[Key]FileRecord)}
}

// Add inserts r under r.Key(), overwriting any previous record with the same key.
func (l *Listing) Add(r FileRecord) {
	k := r.Key()
	if prev, ok := l.records[k]; ok {
		l.overwritten = append(l.overwritten, prev)
	} else {
		l.keys = append(l.keys, k)
	}
	l.records[k] = r
}

// Lookup returns the record stored under k.
func (l *Listing) Lookup(k Key) (FileRecord, bool) {
	r, ok := l.records[k]
	return r, ok
}

// Len returns the number of distinct keys.
func (l *Listing) Len() int {
	return len(l.keys)
}

// Records returns the stored records in first-insertion key order.
func (l *Listing) Records() []FileRecord {
	out := make([]FileRecord, len(l.keys))
	for i, k := range l.keys {
		out[i] = l.records[k]
	}
	return out
}

// Overwritten returns records that lost a key collision to a later line.
func (l *Listing) Overwritten() []FileRecord {
	return l.overwritten
}

// Filter returns a new Listing without the records for which skip returns
// true, along with the skipped records. Collision history is carried over.
func (l *Listing) Filter(skip func(FileRecord) bool) (*Listing, []FileRecord) {
	kept := New()
	var skipped []FileRecord
	for _, r := range l.Records() {
		if skip(r) {
			skipped = append(skipped, r)
			continue
		}
		kept.Add(r)
	}
	kept.overwritten = append(kept.overwritten, l.overwritten...)
	return kept, skipped
}
