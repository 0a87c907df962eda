package chain

import (
	"fmt"
	"strings"
)

// Family is the blockchain network type, independent of the network tier.
type Family string

const (
	FamilyEthereum Family = "ethereum"
	FamilyTron     Family = "tron"
	FamilyXRPL     Family = "xrpl"
	FamilyBitcoin  Family = "bitcoin"
	FamilyDogecoin Family = "dogecoin"
)

// Method names an upstream data-provider capability.
type Method string

const (
	MethodTokenTransfersByAccount Method = "getTokenTransfersByAccount"
	MethodTransactionsByAccount   Method = "getTransactionsByAccount"
	MethodTokenPricesByContracts  Method = "getTokenPricesByContracts"
	MethodNftMetadataByTokenIds   Method = "getNftMetadataByTokenIds"
	MethodDailyTransactionsStats  Method = "getDailyTransactionsStats"
)

// IsTransferLike reports whether the method returns a transfer-style item list.
func (m Method) IsTransferLike() bool {
	return m == MethodTokenTransfersByAccount || m == MethodTransactionsByAccount
}

// ID identifies a network as "<family>/<network>", e.g. "ethereum/mainnet".
type ID struct {
	Family  Family
	Network string
}

func (c ID) String() string {
	return string(c.Family) + "/" + c.Network
}

// methodsByFamily maps each supported family to the methods it can serve.
// Token, NFT, price and stats lookups are Ethereum-only; the remaining
// families expose a single generic transactions-by-account call.
var methodsByFamily = map[Family][]Method{
	FamilyEthereum: {
		MethodTokenTransfersByAccount,
		MethodTokenPricesByContracts,
		MethodNftMetadataByTokenIds,
		MethodDailyTransactionsStats,
	},
	FamilyTron:     {MethodTransactionsByAccount},
	FamilyXRPL:     {MethodTransactionsByAccount},
	FamilyBitcoin:  {MethodTransactionsByAccount},
	FamilyDogecoin: {MethodTransactionsByAccount},
}

// Parse splits a "<family>/<network>" identifier and rejects unknown families.
func Parse(s string) (ID, error) {
	family, network, ok := strings.Cut(s, "/")
	if !ok || network == "" {
		return ID{}, fmt.Errorf("malformed chain identifier %q: want <family>/<network>", s)
	}

	f := Family(strings.ToLower(family))
	if _, known := methodsByFamily[f]; !known {
		return ID{}, fmt.Errorf("unsupported blockchain family %q", family)
	}

	return ID{Family: f, Network: network}, nil
}

// Supports reports whether the chain's family can serve the given method.
func (c ID) Supports(m Method) bool {
	for _, candidate := range methodsByFamily[c.Family] {
		if candidate == m {
			return true
		}
	}
	return false
}

// Families returns the known family set in no particular order.
func Families() []Family {
	out := make([]Family, 0, len(methodsByFamily))
	for f := range methodsByFamily {
		out = append(out, f)
	}
	return out
}
