package chains

import (
	"strconv"
	"strings"
)

const eip155Prefix = "eip155:"

// chainAliases maps common shorthand to CAIP-2 ids. An alias only resolves
// when its target is present in the registry.
var chainAliases = map[string]string{
	"eth":       "eip155:1",
	"mainnet":   "eip155:1",
	"ethereum":  "eip155:1",
	"arbitrum":  "eip155:42161",
	"arb":       "eip155:42161",
	"optimism":  "eip155:10",
	"op":        "eip155:10",
	"base":      "eip155:8453",
	"polygon":   "eip155:137",
	"matic":     "eip155:137",
	"avalanche": "eip155:43114",
	"avax":      "eip155:43114",
}

// strategy tries to resolve a trimmed, lower-cased token. owned reports that
// the token had this strategy's shape; an owned token with an empty result is
// unresolvable and later strategies are not consulted.
type strategy struct {
	name  string
	match func(r *Registry, token string) (caip2 string, owned bool)
}

// resolutionOrder is the fixed order in which tokens are tried. Numeric ids
// come first so a numeric-looking name can never shadow a chain id.
var resolutionOrder = []strategy{
	{name: "numeric", match: matchNumeric},
	{name: "eip155", match: matchEIP155},
	{name: "caip2", match: matchCAIP2},
	{name: "name", match: matchName},
	{name: "alias", match: matchAlias},
}

// Resolver normalizes chain tokens and handles CAIP-10 identifiers against a Registry
type Resolver struct {
	registry *Registry
	checksum Checksummer
}

// Option configures a Resolver
type Option func(*Resolver)

// WithChecksummer replaces the address checksum function used by BuildCaip10
func WithChecksummer(fn Checksummer) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.checksum = fn
		}
	}
}

// NewResolver creates a resolver over registry
func NewResolver(registry *Registry, opts ...Option) *Resolver {
	if registry == nil {
		registry = MustNewRegistry(nil)
	}
	r := &Resolver{
		registry: registry,
		checksum: ChecksumAddress,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the table the resolver reads from
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// NormalizeChainToken maps a chain id, "eip155:<id>" string, chain name, short
// name or alias to its canonical CAIP-2 id. It reports false for empty or
// unknown tokens.
func (r *Resolver) NormalizeChainToken(token string) (string, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return "", false
	}

	for _, s := range resolutionOrder {
		caip2, owned := s.match(r.registry, token)
		if owned {
			return caip2, caip2 != ""
		}
	}
	return "", false
}

// matchNumeric owns optionally signed decimal integers. Chain ids are never
// negative, so "-1" is owned and unresolvable.
func matchNumeric(r *Registry, token string) (string, bool) {
	digits := token
	if token[0] == '+' || token[0] == '-' {
		digits = token[1:]
	}
	if !isDigits(digits) {
		return "", false
	}
	if token[0] == '-' && strings.Trim(digits, "0") != "" {
		return "", true
	}
	return lookupNumericID(r, digits), true
}

// matchEIP155 owns tokens with the eip155 namespace and resolves the reference
func matchEIP155(r *Registry, token string) (string, bool) {
	if !strings.HasPrefix(token, eip155Prefix) {
		return "", false
	}
	reference := strings.TrimPrefix(token, eip155Prefix)
	if i := strings.IndexByte(reference, ':'); i >= 0 {
		reference = reference[:i]
	}
	return lookupNumericID(r, strings.TrimSpace(reference)), true
}

// matchCAIP2 accepts canonical ids of chains outside the eip155 namespace
func matchCAIP2(r *Registry, token string) (string, bool) {
	if !strings.Contains(token, ":") {
		return "", false
	}
	if d, ok := r.Lookup(token); ok {
		return d.CAIP2, true
	}
	return "", false
}

// matchName compares the stripped token against each chain's name, short name
// and id. Numeric ids are left to matchNumeric so "1-0" cannot reach chain 10.
func matchName(r *Registry, token string) (string, bool) {
	stripped := stripSeparators(token)
	if stripped == "" {
		return "", false
	}
	for _, d := range r.descriptors {
		if stripSeparators(d.Name) == stripped ||
			stripSeparators(d.ShortName) == stripped ||
			(!isDigits(d.ID) && stripSeparators(d.ID) == stripped) {
			return d.CAIP2, true
		}
	}
	return "", false
}

// matchAlias consults the static alias table
func matchAlias(r *Registry, token string) (string, bool) {
	target, ok := chainAliases[stripSeparators(token)]
	if !ok {
		return "", false
	}
	d, ok := r.Lookup(target)
	if !ok {
		return "", false
	}
	return d.CAIP2, true
}

// lookupNumericID resolves a decimal id, ignoring leading zeros
func lookupNumericID(r *Registry, id string) string {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return ""
	}
	if d, ok := r.LookupID(strconv.FormatUint(n, 10)); ok {
		return d.CAIP2
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// stripSeparators lower-cases s and drops whitespace, hyphens and underscores
func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range strings.ToLower(s) {
		switch c {
		case ' ', '\t', '\n', '\r', '\f', '\v', '-', '_':
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
