// Package normalize maps heterogeneous per-chain provider payloads onto a
// small set of display-ready record shapes. It is pure: no I/O, and it never
// fails on missing or malformed input, degrading to empty/raw variants.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"chainpulse/internal/chain"
)

// transferMapper converts one family's raw transfer items into the
// chain-agnostic shape. New families register here; adding a chain is a
// single additive entry, not another branch in a nested switch.
type transferMapper func(items []json.RawMessage) []TransferItem

var transferMappers = map[chain.Family]transferMapper{
	chain.FamilyEthereum: mapEthereumTransfers,
	chain.FamilyXRPL:     mapXRPLTransfers,
	chain.FamilyTron:     mapTronTransfers,
	chain.FamilyBitcoin:  mapUTXOTransfers,
	chain.FamilyDogecoin: mapUTXOTransfers,
}

// Normalize maps (method, chain, raw provider payload) to a tagged record.
// Absent or empty payloads yield an empty record; an unrecognized family
// under a transfer method, or an unknown method, yields a raw pass-through.
func Normalize(method chain.Method, id chain.ID, raw json.RawMessage) Record {
	if isAbsent(raw) {
		return Record{Type: KindEmpty}
	}

	switch {
	case method.IsTransferLike():
		items, ok := itemList(raw)
		if !ok || len(items) == 0 {
			return Record{Type: KindEmpty}
		}
		mapper, known := transferMappers[id.Family]
		if !known {
			return Record{Type: KindRaw, Raw: raw}
		}
		return Record{Type: KindTransfers, Transfers: mapper(items)}

	case method == chain.MethodDailyTransactionsStats:
		items, ok := itemList(raw)
		if !ok || len(items) == 0 {
			return Record{Type: KindEmpty}
		}
		return Record{Type: KindStats, Stats: mapStats(items)}

	case method == chain.MethodTokenPricesByContracts:
		return normalizePrices(raw)

	case method == chain.MethodNftMetadataByTokenIds:
		items, ok := itemList(raw)
		if !ok || len(items) == 0 {
			return Record{Type: KindEmpty}
		}
		return Record{Type: KindNFT, NFTs: mapNFTs(items)}

	default:
		return Record{Type: KindRaw, Raw: raw}
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// itemList extracts the item array from either an {"items": [...]} envelope
// or a bare top-level array.
func itemList(raw json.RawMessage) ([]json.RawMessage, bool) {
	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Items != nil {
		return envelope.Items, true
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}

	return nil, false
}

type ethTransfer struct {
	Value    flexFloat `json:"value"`
	Contract *struct {
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"contract"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Timestamp       flexInt `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

func mapEthereumTransfers(items []json.RawMessage) []TransferItem {
	out := make([]TransferItem, 0, len(items))
	for _, item := range items {
		var t ethTransfer
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}

		token := "ETH"
		decimals := 18
		if t.Contract != nil {
			if t.Contract.Symbol != "" {
				token = t.Contract.Symbol
			}
			if t.Contract.Decimals > 0 {
				decimals = t.Contract.Decimals
			}
		}

		// Floating-point division of raw integer amounts loses precision for
		// very large 18-decimal values. That is the documented contract of
		// the amount field; do not swap in integer math here.
		out = append(out, TransferItem{
			Token:           token,
			Amount:          float64(t.Value) / math.Pow(10, float64(decimals)),
			From:            t.From,
			To:              t.To,
			Timestamp:       int64(t.Timestamp),
			TransactionHash: t.TransactionHash,
		})
	}
	return out
}

type xrplTransfer struct {
	TransactionType string    `json:"transactionType"`
	Fee             flexFloat `json:"fee"`
	Account         string    `json:"account"`
	Destination     string    `json:"destination"`
	LedgerTimestamp flexInt   `json:"ledgerTimestamp"`
	TransactionHash string    `json:"transactionHash"`
}

func mapXRPLTransfers(items []json.RawMessage) []TransferItem {
	out := make([]TransferItem, 0, len(items))
	for _, item := range items {
		var t xrplTransfer
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		to := t.Destination
		if to == "" {
			to = "N/A"
		}
		out = append(out, TransferItem{
			Token:           t.TransactionType,
			Amount:          float64(t.Fee),
			From:            t.Account,
			To:              to,
			Timestamp:       int64(t.LedgerTimestamp),
			TransactionHash: t.TransactionHash,
		})
	}
	return out
}

type tronTransfer struct {
	Type            string    `json:"type"`
	Value           flexFloat `json:"value"`
	FromAddress     string    `json:"fromAddress"`
	ToAddress       string    `json:"toAddress"`
	Timestamp       flexInt   `json:"timestamp"`
	TransactionHash string    `json:"transactionHash"`
}

func mapTronTransfers(items []json.RawMessage) []TransferItem {
	out := make([]TransferItem, 0, len(items))
	for _, item := range items {
		var t tronTransfer
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		token := t.Type
		if token == "" {
			token = "TRX"
		}
		to := t.ToAddress
		if to == "" {
			to = "N/A"
		}
		out = append(out, TransferItem{
			Token:           token,
			Amount:          float64(t.Value),
			From:            t.FromAddress,
			To:              to,
			Timestamp:       int64(t.Timestamp),
			TransactionHash: t.TransactionHash,
		})
	}
	return out
}

type utxoEndpoint struct {
	Addresses []string `json:"addresses"`
}

type utxoTransaction struct {
	Vin            []utxoEndpoint `json:"vin"`
	Vout           []utxoEndpoint `json:"vout"`
	BlockTimestamp flexInt        `json:"blockTimestamp"`
	Hash           string         `json:"hash"`
}

// mapUTXOTransfers serves bitcoin and dogecoin. The "amount" here is the
// absolute difference between output and input counts, a coarse proxy
// carried over for compatibility, not a value amount. Do not extend this
// approximation to new chains.
func mapUTXOTransfers(items []json.RawMessage) []TransferItem {
	out := make([]TransferItem, 0, len(items))
	for _, item := range items {
		var t utxoTransaction
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}

		token := "OUTPUT"
		if len(t.Vin) >= len(t.Vout) {
			token = "INPUT"
		}

		from := "Multiple Inputs"
		if len(t.Vin) > 0 && len(t.Vin[0].Addresses) > 0 {
			from = t.Vin[0].Addresses[0]
		}
		to := "Multiple Outputs"
		if len(t.Vout) > 0 && len(t.Vout[0].Addresses) > 0 {
			to = t.Vout[0].Addresses[0]
		}

		out = append(out, TransferItem{
			Token:           token,
			Amount:          math.Abs(float64(len(t.Vout) - len(t.Vin))),
			From:            from,
			To:              to,
			Timestamp:       int64(t.BlockTimestamp),
			TransactionHash: t.Hash,
		})
	}
	return out
}

func mapStats(items []json.RawMessage) []StatItem {
	out := make([]StatItem, 0, len(items))
	for _, item := range items {
		var s struct {
			Date  string    `json:"date"`
			Count flexFloat `json:"count"`
		}
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, StatItem{Date: s.Date, Count: float64(s.Count)})
	}
	return out
}

func normalizePrices(raw json.RawMessage) Record {
	var entries []struct {
		Price              flexFloat `json:"price"`
		PercentChangeFor1h flexFloat `json:"percentChangeFor1h"`
		PercentChange24h   flexFloat `json:"percentChangeFor24h"`
		PercentChange7d    flexFloat `json:"percentChangeFor7d"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
		return Record{Type: KindEmpty}
	}

	prices := make([]PriceItem, 0, len(entries))
	for _, e := range entries {
		prices = append(prices, PriceItem{
			Price: float64(e.Price),
			Changes: PriceChanges{
				H1:  float64(e.PercentChangeFor1h),
				H24: float64(e.PercentChange24h),
				D7:  float64(e.PercentChange7d),
			},
		})
	}
	return Record{Type: KindPrices, Prices: prices}
}

func mapNFTs(items []json.RawMessage) []NFTItem {
	out := make([]NFTItem, 0, len(items))
	for _, item := range items {
		var n struct {
			Contract json.RawMessage `json:"contract"`
			TokenID  string          `json:"tokenId"`
			TokenURI string          `json:"tokenUri"`
			RawMeta  json.RawMessage `json:"rawMetadata"`
		}
		if err := json.Unmarshal(item, &n); err != nil {
			continue
		}

		var contractInfo struct {
			LogoURL string `json:"logoUrl"`
		}
		_ = json.Unmarshal(n.Contract, &contractInfo)

		out = append(out, NFTItem{
			Contract:    n.Contract,
			TokenID:     n.TokenID,
			LogoURL:     contractInfo.LogoURL,
			TokenURI:    n.TokenURI,
			RawMetadata: n.RawMeta,
		})
	}
	return out
}

// flexFloat tolerates numeric fields arriving as JSON numbers, decimal
// strings, or null. Unparsable values decode as zero rather than failing
// the whole item.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexInt is flexFloat for integer timestamps.
type flexInt int64

func (i *flexInt) UnmarshalJSON(data []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		*i = 0
		return nil
	}
	*i = flexInt(f)
	return nil
}
