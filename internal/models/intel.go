package models

import (
	"sort"
)

// IntelKind is the type of an extracted intelligence item.
type IntelKind string

const (
	KindBankAccount     IntelKind = "bank_account"
	KindUPIID           IntelKind = "upi_id"
	KindPhoneNumber     IntelKind = "phone_number"
	KindIFSCCode        IntelKind = "ifsc_code"
	KindBeneficiaryName IntelKind = "beneficiary_name"
	KindBankName        IntelKind = "bank_name"
	KindPhishingLink    IntelKind = "phishing_link"
	KindWhatsAppNumber  IntelKind = "whatsapp_number"
	KindEmail           IntelKind = "email"
	KindOther           IntelKind = "other"
)

// AllKinds lists every kind in reporting order.
var AllKinds = []IntelKind{
	KindBankAccount,
	KindUPIID,
	KindPhoneNumber,
	KindIFSCCode,
	KindBeneficiaryName,
	KindBankName,
	KindPhishingLink,
	KindWhatsAppNumber,
	KindEmail,
	KindOther,
}

var kindOrder = func() map[IntelKind]int {
	m := make(map[IntelKind]int, len(AllKinds))
	for i, k := range AllKinds {
		m[k] = i
	}
	return m
}()

// ParseKind returns the kind for s and whether it is known.
func ParseKind(s string) (IntelKind, bool) {
	k := IntelKind(s)
	_, ok := kindOrder[k]
	return k, ok
}

// IntelItem is one validated fact extracted from scammer messages.
type IntelItem struct {
	Kind       IntelKind `json:"kind"`
	Value      string    `json:"value"`
	RawValue   string    `json:"rawValue"`
	SourceTurn int       `json:"sourceTurn"`
	// Label distinguishes free-form "other" facts; empty for typed kinds.
	Label string `json:"label,omitempty"`
}

// Key is the deduplication identity of the item.
func (i IntelItem) Key() string {
	if i.Kind == KindOther {
		return string(i.Kind) + "\x00" + i.Label + "\x00" + i.Value
	}
	return string(i.Kind) + "\x00" + i.Value
}

// IntelSet is an ordered, deduplicated collection of intelligence items.
// The zero value is empty and ready to use.
type IntelSet struct {
	Items []IntelItem `json:"items"`
}

// Has reports whether an item with the same identity is present.
func (s *IntelSet) Has(item IntelItem) bool {
	key := item.Key()
	for _, existing := range s.Items {
		if existing.Key() == key {
			return true
		}
	}
	return false
}

// Merge adds every item whose identity is not yet present. On duplicates the
// earlier occurrence wins. It returns the items actually added.
func (s *IntelSet) Merge(items []IntelItem) []IntelItem {
	seen := make(map[string]struct{}, len(s.Items)+len(items))
	for _, existing := range s.Items {
		seen[existing.Key()] = struct{}{}
	}
	var added []IntelItem
	for _, item := range items {
		key := item.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		s.Items = append(s.Items, item)
		added = append(added, item)
	}
	s.sort()
	return added
}

// Len returns the number of items.
func (s *IntelSet) Len() int {
	return len(s.Items)
}

// ByKind returns the items of one kind in reporting order.
func (s *IntelSet) ByKind(kind IntelKind) []IntelItem {
	out := make([]IntelItem, 0)
	for _, item := range s.Items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// Kinds returns the set of kinds present.
func (s *IntelSet) Kinds() map[IntelKind]bool {
	out := make(map[IntelKind]bool)
	for _, item := range s.Items {
		out[item.Kind] = true
	}
	return out
}

// Clone returns a deep copy.
func (s IntelSet) Clone() IntelSet {
	if s.Items == nil {
		return IntelSet{}
	}
	items := make([]IntelItem, len(s.Items))
	copy(items, s.Items)
	return IntelSet{Items: items}
}

func (s *IntelSet) sort() {
	sort.SliceStable(s.Items, func(i, j int) bool {
		a, b := s.Items[i], s.Items[j]
		if a.Kind != b.Kind {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		if a.SourceTurn != b.SourceTurn {
			return a.SourceTurn < b.SourceTurn
		}
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		return a.Label < b.Label
	})
}
