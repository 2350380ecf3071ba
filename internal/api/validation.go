package api

import (
	"fmt"
	"strings"
)

func (r CreateRequestRequest) Validate() error {
	if strings.TrimSpace(r.UserAddress) == "" {
		return fmt.Errorf("userAddress is required")
	}
	if strings.TrimSpace(r.FromToken) == "" {
		return fmt.Errorf("fromToken is required")
	}
	if strings.TrimSpace(r.ToToken) == "" {
		return fmt.Errorf("toToken is required")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("amount is required")
	}
	if r.ChainID <= 0 {
		return fmt.Errorf("chainId must be greater than 0")
	}
	return nil
}

func (r SubmitQuoteRequest) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return fmt.Errorf("requestId is required")
	}
	if strings.TrimSpace(r.ResolverAddress) == "" {
		return fmt.Errorf("resolverAddress is required")
	}
	if strings.TrimSpace(r.FromAmount) == "" {
		return fmt.Errorf("fromAmount is required")
	}
	if strings.TrimSpace(r.ToAmount) == "" {
		return fmt.Errorf("toAmount is required")
	}
	return nil
}

func (r UpdateExecutionRequest) Validate() error {
	switch strings.ToUpper(strings.TrimSpace(r.Status)) {
	case "CONFIRMED", "FAILED", "CANCELLED", "PENDING":
		return nil
	}
	return fmt.Errorf("status must be one of PENDING, CONFIRMED, FAILED, CANCELLED")
}

func (r AddOrderRequest) Validate() error {
	if strings.TrimSpace(r.UserAddress) == "" {
		return fmt.Errorf("userAddress is required")
	}
	if strings.TrimSpace(r.FromToken) == "" {
		return fmt.Errorf("fromToken is required")
	}
	if strings.TrimSpace(r.ToToken) == "" {
		return fmt.Errorf("toToken is required")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("amount is required")
	}
	if r.ChainID <= 0 {
		return fmt.Errorf("chainId must be greater than 0")
	}
	if r.Deadline <= 0 {
		return fmt.Errorf("deadline is required")
	}
	return nil
}

func (r UpdateOrderStatusRequest) Validate() error {
	switch strings.ToUpper(strings.TrimSpace(r.Status)) {
	case "PENDING", "ACTIVE", "FILLED", "CANCELLED", "EXPIRED", "FAILED":
		return nil
	}
	return fmt.Errorf("status is not a valid order status")
}

func (r AddResolverRequest) Validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func (r CreatePredicateRequest) Validate() error {
	if strings.TrimSpace(r.UserAddress) == "" {
		return fmt.Errorf("userAddress is required")
	}
	if strings.TrimSpace(r.OracleAddress) == "" {
		return fmt.Errorf("oracleAddress is required")
	}
	if r.ChainID <= 0 {
		return fmt.Errorf("chainId must be greater than 0")
	}
	if strings.TrimSpace(r.PriceThreshold) == "" {
		return fmt.Errorf("priceThreshold is required")
	}
	return nil
}
