package chain

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantFamily Family
		wantErr    bool
	}{
		{"ethereum mainnet", "ethereum/mainnet", FamilyEthereum, false},
		{"ethereum testnet", "ethereum/sepolia", FamilyEthereum, false},
		{"uppercase family accepted", "Ethereum/mainnet", FamilyEthereum, false},
		{"xrpl", "xrpl/mainnet", FamilyXRPL, false},
		{"tron", "tron/mainnet", FamilyTron, false},
		{"bitcoin", "bitcoin/mainnet", FamilyBitcoin, false},
		{"dogecoin", "dogecoin/mainnet", FamilyDogecoin, false},
		{"unknown family rejected", "solana/mainnet", "", true},
		{"missing network", "ethereum", "", true},
		{"missing network after slash", "ethereum/", "", true},
		{"empty string", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q): expected error, got %+v", tt.input, id)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error: %v", tt.input, err)
			}
			if id.Family != tt.wantFamily {
				t.Errorf("family: got %s, want %s", id.Family, tt.wantFamily)
			}
		})
	}
}

func TestSupports(t *testing.T) {
	tests := []struct {
		name   string
		id     ID
		method Method
		want   bool
	}{
		{"ethereum token transfers", ID{Family: FamilyEthereum, Network: "mainnet"}, MethodTokenTransfersByAccount, true},
		{"ethereum prices", ID{Family: FamilyEthereum, Network: "mainnet"}, MethodTokenPricesByContracts, true},
		{"ethereum nft", ID{Family: FamilyEthereum, Network: "mainnet"}, MethodNftMetadataByTokenIds, true},
		{"ethereum stats", ID{Family: FamilyEthereum, Network: "mainnet"}, MethodDailyTransactionsStats, true},
		{"xrpl transactions only", ID{Family: FamilyXRPL, Network: "mainnet"}, MethodTransactionsByAccount, true},
		{"xrpl no prices", ID{Family: FamilyXRPL, Network: "mainnet"}, MethodTokenPricesByContracts, false},
		{"bitcoin no nft", ID{Family: FamilyBitcoin, Network: "mainnet"}, MethodNftMetadataByTokenIds, false},
		{"tron no stats", ID{Family: FamilyTron, Network: "mainnet"}, MethodDailyTransactionsStats, false},
		{"unknown family supports nothing", ID{Family: Family("solana"), Network: "mainnet"}, MethodTransactionsByAccount, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Supports(tt.method); got != tt.want {
				t.Errorf("Supports(%s on %s): got %v, want %v", tt.method, tt.id, got, tt.want)
			}
		})
	}
}

func TestIsTransferLike(t *testing.T) {
	if !MethodTokenTransfersByAccount.IsTransferLike() {
		t.Error("token transfers must be transfer-like")
	}
	if !MethodTransactionsByAccount.IsTransferLike() {
		t.Error("account transactions must be transfer-like")
	}
	if MethodTokenPricesByContracts.IsTransferLike() {
		t.Error("prices must not be transfer-like")
	}
	if MethodDailyTransactionsStats.IsTransferLike() {
		t.Error("stats must not be transfer-like")
	}
}
