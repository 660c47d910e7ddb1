package model

import (
	"fmt"
	"strings"
)

// Token is a supported input token symbol. The set is closed: anything
// outside it is rejected at the boundary instead of resolving to a zero
// price deep in the quote arithmetic.
type Token string

const (
	TokenETH  Token = "ETH"
	TokenSOL  Token = "SOL"
	TokenUSDC Token = "USDC"
	TokenUSDT Token = "USDT"
	TokenCIRX Token = "CIRX"

	// Solana-wrapped stablecoins. They share mainnet pricing via Normalize.
	TokenUSDCSol Token = "USDC_SOL"
	TokenUSDTSol Token = "USDT_SOL"
)

var supportedTokens = map[Token]struct{}{
	TokenETH:     {},
	TokenSOL:     {},
	TokenUSDC:    {},
	TokenUSDT:    {},
	TokenCIRX:    {},
	TokenUSDCSol: {},
	TokenUSDTSol: {},
}

// ParseToken converts a raw symbol into a Token. Matching is
// case-insensitive; unknown symbols are an error.
func ParseToken(symbol string) (Token, error) {
	t := Token(strings.ToUpper(strings.TrimSpace(symbol)))
	if _, ok := supportedTokens[t]; !ok {
		return "", fmt.Errorf("unknown token symbol %q", symbol)
	}
	return t, nil
}

// Normalize maps chain-specific wrappers onto the symbol that carries
// their market price.
func (t Token) Normalize() Token {
	switch t {
	case TokenUSDCSol:
		return TokenUSDC
	case TokenUSDTSol:
		return TokenUSDT
	default:
		return t
	}
}

// IsNative reports whether the token pays gas on its own chain, which
// means a small reserve must be held back when spending a full balance.
func (t Token) IsNative() bool {
	return t == TokenETH || t == TokenSOL
}

// TokenInfo describes a token offered in the swap UI for a given chain.
type TokenInfo struct {
	Symbol Token  `json:"symbol"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
}

// AvailableTokens lists the input tokens offered for a wallet chain.
func AvailableTokens(chain string) []TokenInfo {
	if strings.EqualFold(chain, "solana") {
		return []TokenInfo{
			{Symbol: TokenSOL, Name: "Solana", Logo: "/tokens/sol.svg"},
			{Symbol: TokenUSDC, Name: "USD Coin", Logo: "/tokens/usdc.svg"},
		}
	}
	return []TokenInfo{
		{Symbol: TokenETH, Name: "Ethereum", Logo: "/tokens/eth.svg"},
		{Symbol: TokenUSDC, Name: "USD Coin", Logo: "/tokens/usdc.svg"},
		{Symbol: TokenUSDT, Name: "Tether", Logo: "/tokens/usdt.svg"},
	}
}
