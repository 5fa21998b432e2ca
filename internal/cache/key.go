package cache

import "strings"

// Key addresses one readable resource: a resource name, an optional id and
// optional filter parameters, e.g. {"dashboard", "categoryStats", "MONTHLY", "EXPENSE"}.
type Key []string

const keySep = "\x1f"

// NewKey builds a key, dropping trailing empty parts so that an unset
// filter addresses the same entry as no filter.
func NewKey(parts ...string) Key {
	n := len(parts)
	for n > 0 && parts[n-1] == "" {
		n--
	}
	k := make(Key, n)
	copy(k, parts[:n])
	return k
}

func (k Key) String() string {
	return strings.Join(k, keySep)
}

func parseKey(s string) Key {
	if s == "" {
		return Key{}
	}
	return Key(strings.Split(s, keySep))
}

// HasPrefix reports whether every part of prefix matches the start of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

func (k Key) Equal(o Key) bool {
	return len(k) == len(o) && k.HasPrefix(o)
}

// Matches reports whether k falls under any of the prefixes.
func (k Key) Matches(prefixes ...Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}
