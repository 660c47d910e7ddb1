package api

// QuoteCreateRequest is the payload to request a forward swap quote.
type QuoteCreateRequest struct {
	Amount   string `json:"amount" example:"4"`
	Token    string `json:"token" example:"ETH"`
	Mode     string `json:"mode" example:"otc"`
	ClientID string `json:"clientId,omitempty" example:"client-demo-01"`
}

// ReverseQuoteRequest asks how much input buys a desired CIRX amount.
type ReverseQuoteRequest struct {
	DesiredOutput string `json:"desiredOutput" example:"10000"`
	Token         string `json:"token" example:"ETH"`
	Mode          string `json:"mode" example:"liquid"`
}

// SwapValidateRequest is the pre-trade validation payload.
type SwapValidateRequest struct {
	Amount           string `json:"amount"`
	Token            string `json:"token"`
	RecipientAddress string `json:"recipientAddress"`
	WalletConnected  bool   `json:"walletConnected"`
}
