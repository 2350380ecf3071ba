package api

// CreateRequestRequest is the payload to open an RFQ request. Amounts
// are decimal strings in base units.
type CreateRequestRequest struct {
	UserAddress      string   `json:"userAddress" example:"0x7f3a9c51"`
	FromToken        string   `json:"fromToken" example:"USDC"`
	ToToken          string   `json:"toToken" example:"WETH"`
	Amount           string   `json:"amount" example:"1000000000000000000"`
	TokenDecimals    int32    `json:"tokenDecimals,omitempty" example:"18"`
	ChainID          int64    `json:"chainId" example:"1"`
	AllowedResolvers []string `json:"allowedResolvers,omitempty"`
	MaxSlippage      float64  `json:"maxSlippage" example:"0.5"`
	PredicateID      string   `json:"predicateId,omitempty"`
}

// SubmitQuoteRequest is a resolver's priced answer to a request.
type SubmitQuoteRequest struct {
	RequestID       string  `json:"requestId"`
	ResolverAddress string  `json:"resolverAddress"`
	FromAmount      string  `json:"fromAmount"`
	ToAmount        string  `json:"toAmount"`
	Fee             string  `json:"fee"`
	GasEstimate     string  `json:"gasEstimate"`
	PriceImpact     float64 `json:"priceImpact,omitempty"`
}

// UpdateExecutionRequest is the settlement executor's status callback.
type UpdateExecutionRequest struct {
	Status      string `json:"status" example:"CONFIRMED"`
	TxHash      string `json:"txHash,omitempty"`
	BlockNumber int64  `json:"blockNumber,omitempty"`
	GasUsed     string `json:"gasUsed,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CancelRequestRequest identifies the requesting owner.
type CancelRequestRequest struct {
	UserAddress string `json:"userAddress"`
}

// AddOrderRequest is the payload to place an off-chain order.
type AddOrderRequest struct {
	UserAddress    string   `json:"userAddress"`
	FromToken      string   `json:"fromToken"`
	ToToken        string   `json:"toToken"`
	Amount         string   `json:"amount"`
	TokenDecimals  int32    `json:"tokenDecimals,omitempty"`
	ChainID        int64    `json:"chainId"`
	Deadline       int64    `json:"deadline"` // unix seconds
	AllowedSenders []string `json:"allowedSenders,omitempty"`
	MaxSlippage    float64  `json:"maxSlippage"`
}

// UpdateOrderStatusRequest carries an order status transition.
type UpdateOrderStatusRequest struct {
	Status          string `json:"status"`
	ExecutorAddress string `json:"executorAddress,omitempty"`
	TxHash          string `json:"txHash,omitempty"`
}

// AddResolverRequest registers an execution agent.
type AddResolverRequest struct {
	Address      string   `json:"address"`
	Name         string   `json:"name"`
	AllowedPairs []string `json:"allowedPairs,omitempty"`
	MinOrderSize string   `json:"minOrderSize,omitempty"`
	MaxOrderSize string   `json:"maxOrderSize,omitempty"`
}

// UpdateResolverStatusRequest toggles a resolver online or offline.
type UpdateResolverStatusRequest struct {
	IsOnline bool `json:"isOnline"`
}

// CreatePredicateRequest registers a price predicate.
type CreatePredicateRequest struct {
	UserAddress    string  `json:"userAddress"`
	OracleAddress  string  `json:"oracleAddress"`
	ChainID        int64   `json:"chainId"`
	Tolerance      float64 `json:"tolerance" example:"1.5"`
	PriceThreshold string  `json:"priceThreshold"`
	ExpiresAt      int64   `json:"expiresAt,omitempty"` // unix seconds
}

// CancelPredicateRequest identifies the owning user.
type CancelPredicateRequest struct {
	UserAddress string `json:"userAddress"`
}
