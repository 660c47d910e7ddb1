package api

import (
	"fmt"
	"strings"

	"github.com/circular-protocol/otc-gateway/pkg/model"
)

func parseMode(raw string) (model.TradeMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(model.ModeLiquid):
		return model.ModeLiquid, nil
	case string(model.ModeOTC):
		return model.ModeOTC, nil
	default:
		return "", fmt.Errorf("mode must be 'liquid' or 'otc'")
	}
}

func (r QuoteCreateRequest) Validate() error {
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("amount is required")
	}
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := parseMode(r.Mode); err != nil {
		return err
	}
	return nil
}

func (r ReverseQuoteRequest) Validate() error {
	if strings.TrimSpace(r.DesiredOutput) == "" {
		return fmt.Errorf("desiredOutput is required")
	}
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := parseMode(r.Mode); err != nil {
		return err
	}
	return nil
}

func (r SwapValidateRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}
