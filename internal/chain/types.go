package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

var maxFelt = new(big.Int).Lsh(big.NewInt(1), 252)

// Selector derives the entry point selector for a function name:
// keccak256(name) truncated to its low 250 bits.
func Selector(name string) *big.Int {
	hash := new(big.Int).SetBytes(crypto.Keccak256([]byte(name)))
	return hash.And(hash, selectorMask)
}

// FunctionCall is a read-only contract invocation.
type FunctionCall struct {
	ContractAddress    common.Hash
	EntryPointSelector *big.Int
	Calldata           []*big.Int

	// EntryPoint keeps the human readable name for logs and errors.
	EntryPoint string
}

// NewCall builds a FunctionCall for the named entry point.
func NewCall(contract common.Hash, entryPoint string, calldata ...*big.Int) FunctionCall {
	return FunctionCall{
		ContractAddress:    contract,
		EntryPointSelector: Selector(entryPoint),
		Calldata:           calldata,
		EntryPoint:         entryPoint,
	}
}

type functionCallJSON struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// MarshalJSON encodes the call in the ledger's request shape.
func (f FunctionCall) MarshalJSON() ([]byte, error) {
	calldata := make([]string, 0, len(f.Calldata))
	for _, v := range f.Calldata {
		calldata = append(calldata, FeltHex(v))
	}
	return json.Marshal(functionCallJSON{
		ContractAddress:    FeltHex(f.ContractAddress.Big()),
		EntryPointSelector: FeltHex(f.EntryPointSelector),
		Calldata:           calldata,
	})
}

// BlockID selects the state a call is executed against.
type BlockID struct {
	tag    string
	number uint64
}

var (
	Latest  = BlockID{tag: "latest"}
	Pending = BlockID{tag: "pending"}
)

// Number pins a call to a numbered block.
func Number(n uint64) BlockID {
	return BlockID{number: n}
}

func (b BlockID) String() string {
	if b.tag != "" {
		return b.tag
	}
	return fmt.Sprintf("%d", b.number)
}

// MarshalJSON encodes the block id as a tag string or a block_number object.
func (b BlockID) MarshalJSON() ([]byte, error) {
	if b.tag != "" {
		return json.Marshal(b.tag)
	}
	return json.Marshal(struct {
		BlockNumber uint64 `json:"block_number"`
	}{BlockNumber: b.number})
}

// FeltHex renders a felt as 0x-prefixed hex without leading zeros.
func FeltHex(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// AddressHex renders a contract address the way FeltHex renders felts.
func AddressHex(a common.Hash) string {
	return FeltHex(a.Big())
}

// ParseFelt parses a 0x-prefixed hex or decimal felt.
func ParseFelt(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty felt")
	}
	var (
		v  *big.Int
		ok bool
	)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		if len(input) == 2 {
			return nil, fmt.Errorf("invalid felt: %s", input)
		}
		v, ok = new(big.Int).SetString(input[2:], 16)
	} else {
		v, ok = new(big.Int).SetString(input, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid felt: %s", input)
	}
	if v.Sign() < 0 || v.Cmp(maxFelt) >= 0 {
		return nil, fmt.Errorf("felt out of range: %s", input)
	}
	return v, nil
}

// ParseAddress parses a contract address felt.
func ParseAddress(input string) (common.Hash, error) {
	v, err := ParseFelt(input)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BigToHash(v), nil
}

// ParseAddresses converts string felts into addresses, skipping blanks.
func ParseAddresses(inputs []string) ([]common.Hash, error) {
	addresses := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, fmt.Errorf("invalid address %s: %w", input, err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// U256 recombines a (low, high) felt pair into one integer.
func U256(low, high *big.Int) *big.Int {
	out := new(big.Int).Lsh(high, 128)
	return out.Or(out, low)
}
