package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateRequestRequestValidate(t *testing.T) {
	valid := CreateRequestRequest{
		UserAddress: "0xuser",
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      "1000000000000000000",
		ChainID:     1,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(r *CreateRequestRequest)
		wantErr string
	}{
		{"missing user", func(r *CreateRequestRequest) { r.UserAddress = "" }, "userAddress is required"},
		{"blank user", func(r *CreateRequestRequest) { r.UserAddress = "   " }, "userAddress is required"},
		{"missing from token", func(r *CreateRequestRequest) { r.FromToken = "" }, "fromToken is required"},
		{"missing to token", func(r *CreateRequestRequest) { r.ToToken = "" }, "toToken is required"},
		{"missing amount", func(r *CreateRequestRequest) { r.Amount = "" }, "amount is required"},
		{"zero chain", func(r *CreateRequestRequest) { r.ChainID = 0 }, "chainId must be greater than 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			err := r.Validate()
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestSubmitQuoteRequestValidate(t *testing.T) {
	valid := SubmitQuoteRequest{
		RequestID:       "4ba0d706-9f7d-4c6b-9f9c-000000000000",
		ResolverAddress: "0xbot",
		FromAmount:      "100",
		ToAmount:        "99",
	}
	assert.NoError(t, valid.Validate())

	r := valid
	r.RequestID = ""
	assert.EqualError(t, r.Validate(), "requestId is required")

	r = valid
	r.ResolverAddress = ""
	assert.EqualError(t, r.Validate(), "resolverAddress is required")

	r = valid
	r.FromAmount = ""
	assert.EqualError(t, r.Validate(), "fromAmount is required")

	r = valid
	r.ToAmount = ""
	assert.EqualError(t, r.Validate(), "toAmount is required")
}

func TestUpdateExecutionRequestValidate(t *testing.T) {
	for _, status := range []string{"CONFIRMED", "confirmed", " Failed ", "CANCELLED", "PENDING"} {
		assert.NoError(t, UpdateExecutionRequest{Status: status}.Validate(), status)
	}
	assert.Error(t, UpdateExecutionRequest{Status: "DONE"}.Validate())
	assert.Error(t, UpdateExecutionRequest{}.Validate())
}

func TestAddOrderRequestValidate(t *testing.T) {
	valid := AddOrderRequest{
		UserAddress: "0xuser",
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      "100",
		ChainID:     1,
		Deadline:    1700000000,
	}
	assert.NoError(t, valid.Validate())

	r := valid
	r.Deadline = 0
	assert.EqualError(t, r.Validate(), "deadline is required")

	r = valid
	r.ChainID = -1
	assert.EqualError(t, r.Validate(), "chainId must be greater than 0")
}

func TestUpdateOrderStatusRequestValidate(t *testing.T) {
	for _, status := range []string{"PENDING", "ACTIVE", "FILLED", "CANCELLED", "EXPIRED", "FAILED", "active"} {
		assert.NoError(t, UpdateOrderStatusRequest{Status: status}.Validate(), status)
	}
	assert.Error(t, UpdateOrderStatusRequest{Status: "OPEN"}.Validate())
}

func TestAddResolverRequestValidate(t *testing.T) {
	assert.NoError(t, AddResolverRequest{Address: "0xbot", Name: "maker-1"}.Validate())
	assert.EqualError(t, AddResolverRequest{Name: "maker-1"}.Validate(), "address is required")
	assert.EqualError(t, AddResolverRequest{Address: "0xbot"}.Validate(), "name is required")
}

func TestCreatePredicateRequestValidate(t *testing.T) {
	valid := CreatePredicateRequest{
		UserAddress:    "0xuser",
		OracleAddress:  "0xfeed",
		ChainID:        1,
		Tolerance:      1.5,
		PriceThreshold: "1850.42",
	}
	assert.NoError(t, valid.Validate())

	r := valid
	r.OracleAddress = ""
	assert.EqualError(t, r.Validate(), "oracleAddress is required")

	r = valid
	r.PriceThreshold = ""
	assert.EqualError(t, r.Validate(), "priceThreshold is required")
}
