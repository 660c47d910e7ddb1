package model

import "testing"

func TestParseToken(t *testing.T) {
	tests := []struct {
		in      string
		want    Token
		wantErr bool
	}{
		{"ETH", TokenETH, false},
		{"eth", TokenETH, false},
		{" usdc ", TokenUSDC, false},
		{"USDC_SOL", TokenUSDCSol, false},
		{"usdt_sol", TokenUSDTSol, false},
		{"CIRX", TokenCIRX, false},
		{"DOGE", "", true},
		{"", "", true},
		{"ETH2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseToken(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if TokenUSDCSol.Normalize() != TokenUSDC {
		t.Error("expected USDC_SOL to normalize to USDC")
	}
	if TokenUSDTSol.Normalize() != TokenUSDT {
		t.Error("expected USDT_SOL to normalize to USDT")
	}
	if TokenETH.Normalize() != TokenETH {
		t.Error("expected ETH to normalize to itself")
	}
}

func TestIsNative(t *testing.T) {
	for token, want := range map[Token]bool{
		TokenETH:  true,
		TokenSOL:  true,
		TokenUSDC: false,
		TokenUSDT: false,
		TokenCIRX: false,
	} {
		if token.IsNative() != want {
			t.Errorf("%s: expected IsNative=%v", token, want)
		}
	}
}

func TestAvailableTokens(t *testing.T) {
	sol := AvailableTokens("solana")
	if len(sol) != 2 || sol[0].Symbol != TokenSOL {
		t.Errorf("unexpected solana token list: %+v", sol)
	}

	eth := AvailableTokens("ethereum")
	if len(eth) != 3 || eth[0].Symbol != TokenETH {
		t.Errorf("unexpected ethereum token list: %+v", eth)
	}

	// Unknown chains fall back to the EVM list
	if got := AvailableTokens("weird"); len(got) != 3 {
		t.Errorf("expected EVM fallback for unknown chain, got %+v", got)
	}
}
