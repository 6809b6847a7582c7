package chains

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrBadChecksum is returned for mixed-case addresses whose case does not match EIP-55
var ErrBadChecksum = errors.New("address has an invalid EIP-55 checksum")

// Caip10 is a parsed "<namespace>:<reference>:<address>" identifier
type Caip10 struct {
	ChainID      string `json:"chainId"`      // canonical CAIP-2 id when IsKnownChain, else the raw prefix
	Address      string `json:"address"`      // never empty
	IsKnownChain bool   `json:"isKnownChain"` // chain prefix resolved against the registry
}

// String renders the identifier as "<chainId>:<address>"
func (c Caip10) String() string {
	return c.ChainID + ":" + c.Address
}

// Checksummer converts a hex address to its checksummed form and may fail
type Checksummer func(address string) (string, error)

// ChecksumAddress returns the EIP-55 form of a 20-byte hex address. All-lower
// and all-upper input is accepted; mixed case must already carry a valid checksum.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("not a 20-byte hex address: %q", address)
	}

	checksummed := common.HexToAddress(address).Hex()

	body := address
	if len(body) == 42 {
		body = body[2:]
	}
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && body != checksummed[2:] {
		return "", ErrBadChecksum
	}
	return checksummed, nil
}

// ParseCaip10 splits value into chain and address. It reports false for empty
// input, fewer than three colon separated segments, or an empty address. An
// address containing colons is kept whole.
func (r *Resolver) ParseCaip10(value string) (Caip10, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Caip10{}, false
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) < 3 {
		return Caip10{}, false
	}

	chainCandidate := parts[0] + ":" + parts[1]
	address := strings.TrimSpace(strings.Join(parts[2:], ":"))
	if address == "" {
		return Caip10{}, false
	}

	if caip2, ok := r.NormalizeChainToken(chainCandidate); ok {
		return Caip10{ChainID: caip2, Address: address, IsKnownChain: true}, true
	}
	return Caip10{ChainID: chainCandidate, Address: address, IsKnownChain: false}, true
}

// BuildCaip10 joins chainID and address. Unknown chains are used verbatim and
// 0x-prefixed 40-hex addresses are checksummed when possible; it never fails.
func (r *Resolver) BuildCaip10(chainID, address string) string {
	chain := chainID
	if caip2, ok := r.NormalizeChainToken(chainID); ok {
		chain = caip2
	}

	trimmed := strings.TrimSpace(address)
	formatted := trimmed
	if strings.HasPrefix(trimmed, "0x") && len(trimmed) == 42 {
		formatted = r.safeChecksum(trimmed)
	}

	return chain + ":" + formatted
}

// safeChecksum runs the configured checksummer, falling back to address on
// error or panic
func (r *Resolver) safeChecksum(address string) (out string) {
	defer func() {
		if recover() != nil {
			out = address
		}
	}()

	checksummed, err := r.checksum(address)
	if err != nil || checksummed == "" {
		return address
	}
	return checksummed
}
