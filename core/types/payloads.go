package types

// Transaction payloads. Amounts are decimal strings in base units and
// addresses are bech32 or 0x hex. Payable entry points take their amount
// from Transaction.Value instead of the payload.

type TransferPayload struct {
	To string `json:"to"`
}

type CreatorPayload struct {
	Name string `json:"name"`
}

type AgentPayload struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Capabilities string `json:"capabilities,omitempty"`
}

type RegisterContentPayload struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Price       string `json:"price"`
}

type UpdateContentPayload struct {
	ContentID   uint64 `json:"contentId"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

type AccessContentPayload struct {
	ContentID uint64 `json:"contentId"`
	AgentTag  string `json:"agentTag"`
}

type DepositPayload struct {
	AccountID uint64 `json:"accountId"`
}

type WithdrawPayload struct {
	AccountID uint64 `json:"accountId"`
	Amount    string `json:"amount"`
}

// ExecuteTransactionPayload moves Value out of custody to Target. Call is
// handed to the target's receive hook.
type ExecuteTransactionPayload struct {
	AccountID uint64 `json:"accountId"`
	Target    string `json:"target"`
	Call      []byte `json:"call,omitempty"`
	Value     string `json:"value"`
}

type CreateCampaignPayload struct {
	CampaignType string `json:"campaignType"`
	Budget       string `json:"budget"`
}

type ExecuteCampaignPayload struct {
	CampaignID     uint64 `json:"campaignId"`
	Spent          string `json:"spent"`
	PerformanceBps uint64 `json:"performanceBps"`
}

type CompleteCampaignPayload struct {
	CampaignID uint64 `json:"campaignId"`
}

type RatePayload struct {
	Rate uint64 `json:"rate"`
}

type FeeModePayload struct {
	Mode string `json:"mode"`
}

type AmountPayload struct {
	Amount string `json:"amount"`
}

type PriceBoundsPayload struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type AddressPayload struct {
	Address string `json:"address"`
}

type PausesPayload struct {
	Modules []string `json:"modules"`
}
