package classify

import "strings"

// Buckets groups classified records by destination directory key, preserving
// arrival order within each key. Arrival order across concurrently
// classified records is not deterministic; callers must not assign
// order-dependent values until the bucket is fully accumulated.
type Buckets struct {
	order   []string
	records map[string][]Record
}

// NewBuckets returns an empty accumulator.
func NewBuckets() *Buckets {
	return &Buckets{records: make(map[string][]Record)}
}

// Add appends rec to its bucket, creating the bucket if absent.
func (b *Buckets) Add(rec Record) {
	if _, ok := b.records[rec.DirKey]; !ok {
		b.order = append(b.order, rec.DirKey)
	}
	b.records[rec.DirKey] = append(b.records[rec.DirKey], rec)
}

// Len returns the number of distinct buckets.
func (b *Buckets) Len() int {
	return len(b.records)
}

// Keys returns bucket keys in first-arrival order.
func (b *Buckets) Keys() []string {
	return append([]string(nil), b.order...)
}

// Records returns the accumulated records for key in arrival order.
func (b *Buckets) Records(key string) []Record {
	return b.records[key]
}

// RawKeys returns the keys of RAW image buckets in first-arrival order.
func (b *Buckets) RawKeys() []string {
	var keys []string
	for _, key := range b.order {
		records := b.records[key]
		if len(records) > 0 && records[0].Kind == KindRawImage {
			keys = append(keys, key)
		}
	}
	return keys
}

// KeyExt returns the extension suffix of a directory key.
func KeyExt(key string) string {
	idx := strings.LastIndex(key, "_")
	if idx < 0 || idx == len(key)-1 {
		return ""
	}
	return key[idx+1:]
}
