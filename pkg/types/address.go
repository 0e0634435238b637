package types

import (
	"encoding/json"
	"strings"
)

// Address is the structured shipping destination carried on orders and quotes.
// Stored as jsonb on the orders table.
type Address struct {
	Name       string `json:"name,omitempty"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// MarshalCompact serializes the address as single-line JSON for metadata use.
func (a Address) MarshalCompact() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseCompactAddress decodes an address written by MarshalCompact.
func ParseCompactAddress(blob string) (*Address, error) {
	var a Address
	if err := json.Unmarshal([]byte(blob), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Complete reports whether the address carries enough data to ship to.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Street1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.PostalCode) != ""
}
