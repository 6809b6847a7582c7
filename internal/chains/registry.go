// Package chains resolves user supplied chain tokens to CAIP-2 identifiers and
// parses and builds CAIP-10 account identifiers.
//
// Every lookup goes through a Registry built from an explicit descriptor table,
// so resolvers can be tested against fabricated tables.
package chains

import (
	"fmt"
	"strings"
)

// Descriptor describes one known chain
type Descriptor struct {
	ID        string `json:"id"`        // Numeric chain id, e.g. "8453"
	CAIP2     string `json:"caip2"`     // Canonical CAIP-2 id, e.g. "eip155:8453"
	Name      string `json:"name"`      // Display name, e.g. "Base"
	ShortName string `json:"shortName"` // Short name, e.g. "base"
}

// Registry is a read-only chain reference table
type Registry struct {
	descriptors []Descriptor
	byID        map[string]Descriptor
	byCAIP2     map[string]Descriptor
}

// NewRegistry builds a registry from descriptors. CAIP-2 ids and numeric ids
// must be unique; table order decides which chain wins a name collision.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		byID:        make(map[string]Descriptor, len(descriptors)),
		byCAIP2:     make(map[string]Descriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		d.ID = strings.TrimSpace(d.ID)
		d.CAIP2 = strings.TrimSpace(d.CAIP2)
		if d.ID == "" || d.CAIP2 == "" {
			return nil, fmt.Errorf("chain descriptor %q: id and caip2 are required", d.Name)
		}

		caip2Key := strings.ToLower(d.CAIP2)
		if _, exists := r.byCAIP2[caip2Key]; exists {
			return nil, fmt.Errorf("duplicate chain caip2 %q", d.CAIP2)
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("duplicate chain id %q", d.ID)
		}

		r.descriptors = append(r.descriptors, d)
		r.byID[d.ID] = d
		r.byCAIP2[caip2Key] = d
	}

	return r, nil
}

// MustNewRegistry is NewRegistry for static tables; it panics on an invalid table
func MustNewRegistry(descriptors []Descriptor) *Registry {
	r, err := NewRegistry(descriptors)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns a registry over DefaultDescriptors
func DefaultRegistry() *Registry {
	return MustNewRegistry(DefaultDescriptors())
}

// All returns a copy of the table in its original order
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Len returns the number of chains in the table
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// Lookup finds a chain by CAIP-2 id, ignoring case and surrounding whitespace
func (r *Registry) Lookup(caip2 string) (Descriptor, bool) {
	d, ok := r.byCAIP2[strings.ToLower(strings.TrimSpace(caip2))]
	return d, ok
}

// LookupID finds a chain by its numeric id string
func (r *Registry) LookupID(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// DefaultDescriptors is the built-in chain table used when no table is stored
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{ID: "1", CAIP2: "eip155:1", Name: "Ethereum", ShortName: "eth"},
		{ID: "10", CAIP2: "eip155:10", Name: "Optimism", ShortName: "oeth"},
		{ID: "56", CAIP2: "eip155:56", Name: "BNB Smart Chain", ShortName: "bnb"},
		{ID: "100", CAIP2: "eip155:100", Name: "Gnosis", ShortName: "gno"},
		{ID: "130", CAIP2: "eip155:130", Name: "Unichain", ShortName: "unichain"},
		{ID: "137", CAIP2: "eip155:137", Name: "Polygon", ShortName: "pol"},
		{ID: "324", CAIP2: "eip155:324", Name: "zkSync Era", ShortName: "zksync"},
		{ID: "480", CAIP2: "eip155:480", Name: "World Chain", ShortName: "wc"},
		{ID: "1101", CAIP2: "eip155:1101", Name: "Polygon zkEVM", ShortName: "zkevm"},
		{ID: "5000", CAIP2: "eip155:5000", Name: "Mantle", ShortName: "mantle"},
		{ID: "8453", CAIP2: "eip155:8453", Name: "Base", ShortName: "base"},
		{ID: "34443", CAIP2: "eip155:34443", Name: "Mode", ShortName: "mode"},
		{ID: "42161", CAIP2: "eip155:42161", Name: "Arbitrum One", ShortName: "arb1"},
		{ID: "42170", CAIP2: "eip155:42170", Name: "Arbitrum Nova", ShortName: "arb-nova"},
		{ID: "42220", CAIP2: "eip155:42220", Name: "Celo", ShortName: "celo"},
		{ID: "43114", CAIP2: "eip155:43114", Name: "Avalanche C-Chain", ShortName: "avax"},
		{ID: "59144", CAIP2: "eip155:59144", Name: "Linea", ShortName: "linea"},
		{ID: "81457", CAIP2: "eip155:81457", Name: "Blast", ShortName: "blastmainnet"},
		{ID: "167000", CAIP2: "eip155:167000", Name: "Taiko", ShortName: "tko"},
		{ID: "534352", CAIP2: "eip155:534352", Name: "Scroll", ShortName: "scr"},
		{ID: "7777777", CAIP2: "eip155:7777777", Name: "Zora", ShortName: "zora"},
		{ID: "11155111", CAIP2: "eip155:11155111", Name: "Sepolia", ShortName: "sep"},
		{ID: "84532", CAIP2: "eip155:84532", Name: "Base Sepolia", ShortName: "basesep"},
	}
}
