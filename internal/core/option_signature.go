package core

import (
	"sort"
	"strings"
)

// DefaultOptionSignature is the signature of a variant without options.
const DefaultOptionSignature = "default"

// OptionSignature canonicalizes a variant's attribute options so that two variants of the
// same product resolve to the same string iff they carry the same option combination.
// Keys and values are trimmed and lower-cased, pairs with an empty key or value are dropped,
// and the remaining pairs are sorted by key and joined as key=value;key=value.
// Keys that collide after normalization keep the smallest value.
func OptionSignature(options map[string]string) string {
	normalized := make(map[string]string, len(options))
	for k, v := range options {
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.ToLower(strings.TrimSpace(v))
		if key == "" || val == "" {
			continue
		}
		if prev, ok := normalized[key]; ok && prev <= val {
			continue
		}
		normalized[key] = val
	}
	if len(normalized) == 0 {
		return DefaultOptionSignature
	}

	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + normalized[k]
	}
	return strings.Join(pairs, ";")
}
