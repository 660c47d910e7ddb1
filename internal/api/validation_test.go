package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/circular-protocol/otc-gateway/pkg/model"
)

func TestQuoteCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     QuoteCreateRequest
		wantErr string
	}{
		{
			name: "valid otc",
			req:  QuoteCreateRequest{Amount: "4", Token: "ETH", Mode: "otc"},
		},
		{
			name: "valid with empty mode",
			req:  QuoteCreateRequest{Amount: "1", Token: "USDC"},
		},
		{
			name:    "missing amount",
			req:     QuoteCreateRequest{Token: "ETH"},
			wantErr: "amount is required",
		},
		{
			name:    "missing token",
			req:     QuoteCreateRequest{Amount: "1"},
			wantErr: "token is required",
		},
		{
			name:    "bad mode",
			req:     QuoteCreateRequest{Amount: "1", Token: "ETH", Mode: "vip"},
			wantErr: "mode must be 'liquid' or 'otc'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestReverseQuoteRequest_Validate(t *testing.T) {
	assert.NoError(t, ReverseQuoteRequest{DesiredOutput: "10000", Token: "ETH", Mode: "liquid"}.Validate())
	assert.Error(t, ReverseQuoteRequest{Token: "ETH"}.Validate())
	assert.Error(t, ReverseQuoteRequest{DesiredOutput: "10000"}.Validate())
	assert.Error(t, ReverseQuoteRequest{DesiredOutput: "10000", Token: "ETH", Mode: "x"}.Validate())
}

func TestSwapValidateRequest_Validate(t *testing.T) {
	assert.NoError(t, SwapValidateRequest{Token: "ETH"}.Validate())
	assert.Error(t, SwapValidateRequest{}.Validate())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    model.TradeMode
		wantErr bool
	}{
		{"", model.ModeLiquid, false},
		{"liquid", model.ModeLiquid, false},
		{"LIQUID", model.ModeLiquid, false},
		{" otc ", model.ModeOTC, false},
		{"OTC", model.ModeOTC, false},
		{"vip", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
