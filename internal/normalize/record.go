package normalize

import "encoding/json"

// Kind tags a normalized record variant. The tag uniquely determines the
// item shape carried by the record.
type Kind string

const (
	KindTransfers Kind = "transfers"
	KindStats     Kind = "stats"
	KindPrices    Kind = "prices"
	KindNFT       Kind = "nft"
	KindRaw       Kind = "raw"
	KindEmpty     Kind = "empty"
)

// TransferItem is the chain-agnostic transfer shape. Amount is always in
// human-readable units (decimal-divided), never raw integer/wei units.
type TransferItem struct {
	Token           string  `json:"token"`
	Amount          float64 `json:"amount"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Timestamp       int64   `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

// StatItem is one day of transaction-count statistics.
type StatItem struct {
	Date  string  `json:"date"`
	Count float64 `json:"count"`
}

// PriceChanges holds percent changes over fixed windows.
type PriceChanges struct {
	H1  float64 `json:"1h"`
	H24 float64 `json:"24h"`
	D7  float64 `json:"7d"`
}

// PriceItem is a token spot price with its percent-change fields.
type PriceItem struct {
	Price   float64      `json:"price"`
	Changes PriceChanges `json:"changes"`
}

// NFTItem carries NFT metadata. RawMetadata is left opaque for the caller
// to parse further (attribute lists and the like).
type NFTItem struct {
	Contract    json.RawMessage `json:"contract"`
	TokenID     string          `json:"tokenId"`
	LogoURL     string          `json:"logoUrl"`
	TokenURI    string          `json:"tokenUri"`
	RawMetadata json.RawMessage `json:"rawMetadata"`
}

// Record is the display-ready result of normalizing one provider response.
// Exactly one of the item slices is populated, selected by Type; Raw holds
// the untouched payload for pass-through variants.
type Record struct {
	Type      Kind
	Transfers []TransferItem
	Stats     []StatItem
	Prices    []PriceItem
	NFTs      []NFTItem
	Raw       json.RawMessage
}

// MarshalJSON renders the record as {"type": ..., "items": [...]}, the shape
// the dashboard consumes regardless of source chain.
func (r Record) MarshalJSON() ([]byte, error) {
	var items interface{}
	switch r.Type {
	case KindTransfers:
		items = emptyIfNil(r.Transfers)
	case KindStats:
		items = emptyIfNilStats(r.Stats)
	case KindPrices:
		items = emptyIfNilPrices(r.Prices)
	case KindNFT:
		items = emptyIfNilNFTs(r.NFTs)
	case KindRaw:
		items = r.Raw
	default:
		items = []struct{}{}
	}
	return json.Marshal(struct {
		Type  Kind        `json:"type"`
		Items interface{} `json:"items"`
	}{Type: r.Type, Items: items})
}

func emptyIfNil(s []TransferItem) []TransferItem {
	if s == nil {
		return []TransferItem{}
	}
	return s
}

func emptyIfNilStats(s []StatItem) []StatItem {
	if s == nil {
		return []StatItem{}
	}
	return s
}

func emptyIfNilPrices(s []PriceItem) []PriceItem {
	if s == nil {
		return []PriceItem{}
	}
	return s
}

func emptyIfNilNFTs(s []NFTItem) []NFTItem {
	if s == nil {
		return []NFTItem{}
	}
	return s
}
