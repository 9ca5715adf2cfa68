package rpc

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"agentpay/core/types"
	"agentpay/crypto"
	"agentpay/native/access"
	"agentpay/native/campaign"
	"agentpay/native/catalog"
	"agentpay/native/custody"
	"agentpay/native/fees"
	"agentpay/native/params"
	"agentpay/native/registry"
)

// ReceiptResult reflects the outcome of an applied transaction.
type ReceiptResult struct {
	TransactionHash string          `json:"transactionHash"`
	Type            string          `json:"type"`
	Success         bool            `json:"success"`
	Reason          string          `json:"reason,omitempty"`
	Error           string          `json:"error,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Events          []*types.Event  `json:"events"`
	StateRoot       string          `json:"stateRoot"`
}

type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type CreatorResult struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	RegisteredAt int64  `json:"registeredAt"`
	ContentCount uint64 `json:"contentCount"`
	TotalRevenue string `json:"totalRevenue"`
	Status       string `json:"status"`
}

type AgentResult struct {
	Address           string `json:"address"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Capabilities      string `json:"capabilities"`
	AccessCount       uint64 `json:"accessCount"`
	TotalSpent        string `json:"totalSpent"`
	RegisteredAt      int64  `json:"registeredAt"`
	LastActiveAt      int64  `json:"lastActiveAt"`
	CampaignsExecuted uint64 `json:"campaignsExecuted"`
	Status            string `json:"status"`
	CustodyID         uint64 `json:"custodyId"`
}

type ContentResult struct {
	ID           uint64 `json:"id"`
	Creator      string `json:"creator"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Fingerprint  string `json:"fingerprint"`
	Price        string `json:"price"`
	Status       string `json:"status"`
	AccessCount  uint64 `json:"accessCount"`
	TotalRevenue string `json:"totalRevenue"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type CustodyAccountResult struct {
	ID           uint64 `json:"id"`
	Owner        string `json:"owner"`
	Balance      string `json:"balance"`
	TxCount      uint64 `json:"txCount"`
	TxVolume     string `json:"txVolume"`
	Deposited    string `json:"deposited"`
	Withdrawn    string `json:"withdrawn"`
	CreatedAt    int64  `json:"createdAt"`
	LastActiveAt int64  `json:"lastActiveAt"`
}

type CampaignResult struct {
	ID             uint64 `json:"id"`
	Client         string `json:"client"`
	Type           string `json:"type"`
	Budget         string `json:"budget"`
	Payment        string `json:"payment"`
	Spent          string `json:"spent"`
	PerformanceBps uint64 `json:"performanceBps"`
	Executed       bool   `json:"executed"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"createdAt"`
	CompletedAt    int64  `json:"completedAt,omitempty"`
	Bonus          string `json:"bonus"`
	BonusPaid      bool   `json:"bonusPaid"`
}

type CampaignStatsResult struct {
	TotalCampaigns     uint64 `json:"totalCampaigns"`
	ExecutedCampaigns  uint64 `json:"executedCampaigns"`
	AveragePerformance uint64 `json:"averagePerformance"`
	TotalBonusesPaid   string `json:"totalBonusesPaid"`
	BonusesSkipped     uint64 `json:"bonusesSkipped"`
}

type AccessResult struct {
	Agent        string `json:"agent"`
	ContentID    uint64 `json:"contentId"`
	HasAccess    bool   `json:"hasAccess"`
	AccessCount  uint64 `json:"accessCount"`
	TotalPaid    string `json:"totalPaid"`
	LastTag      string `json:"lastTag,omitempty"`
	LastAccessAt int64  `json:"lastAccessAt,omitempty"`
}

type ParamsResult struct {
	Admin             string   `json:"admin"`
	Operator          string   `json:"operator"`
	CampaignAgent     string   `json:"campaignAgent,omitempty"`
	PlatformFee       uint64   `json:"platformFee"`
	FeeMode           string   `json:"feeMode"`
	RegistrationFee   string   `json:"registrationFee"`
	MinPrice          string   `json:"minPrice"`
	MaxPrice          string   `json:"maxPrice"`
	CampaignBasePrice string   `json:"campaignBasePrice"`
	PerformanceFeeBps uint64   `json:"performanceFeeBps"`
	Paused            []string `json:"paused"`
}

type FeeTotalsResult struct {
	Domain string `json:"domain"`
	Wallet string `json:"wallet,omitempty"`
	Gross  string `json:"gross"`
	Fee    string `json:"fee"`
	Net    string `json:"net"`
}

type StateRootResult struct {
	Root   string `json:"root"`
	Height uint64 `json:"height"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optionalAddress(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return crypto.FormatAddress(addr)
}

func receiptResult(r *types.Receipt) ReceiptResult {
	out := ReceiptResult{
		TransactionHash: "0x" + hex.EncodeToString(r.TxHash),
		Type:            r.Type.String(),
		Success:         r.Success,
		Reason:          r.Reason,
		Error:           r.Error,
		Events:          r.Events,
		StateRoot:       "0x" + hex.EncodeToString(r.Root),
	}
	if out.Events == nil {
		out.Events = []*types.Event{}
	}
	if r.Result != "" {
		out.Result = json.RawMessage(r.Result)
	}
	return out
}

func creatorResult(c *registry.Creator) CreatorResult {
	return CreatorResult{
		Address:      crypto.FormatAddress(c.Address),
		Name:         c.Name,
		RegisteredAt: c.RegisteredAt,
		ContentCount: c.ContentCount,
		TotalRevenue: amountString(c.TotalRevenue),
		Status:       c.Status.String(),
	}
}

func agentResult(a *registry.Agent) AgentResult {
	return AgentResult{
		Address:           crypto.FormatAddress(a.Address),
		Name:              a.Name,
		Description:       a.Description,
		Capabilities:      a.Capabilities,
		AccessCount:       a.AccessCount,
		TotalSpent:        amountString(a.TotalSpent),
		RegisteredAt:      a.RegisteredAt,
		LastActiveAt:      a.LastActiveAt,
		CampaignsExecuted: a.CampaignsExecuted,
		Status:            a.Status.String(),
		CustodyID:         a.CustodyID,
	}
}

func contentResult(c *catalog.Content) ContentResult {
	return ContentResult{
		ID:           c.ID,
		Creator:      crypto.FormatAddress(c.Creator),
		Title:        c.Title,
		Description:  c.Description,
		Fingerprint:  c.Fingerprint,
		Price:        amountString(c.Price),
		Status:       c.Status.String(),
		AccessCount:  c.AccessCount,
		TotalRevenue: amountString(c.TotalRevenue),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func custodyAccountResult(a *custody.Account) CustodyAccountResult {
	return CustodyAccountResult{
		ID:           a.ID,
		Owner:        crypto.FormatAddress(a.Owner),
		Balance:      amountString(a.Balance),
		TxCount:      a.TxCount,
		TxVolume:     amountString(a.TxVolume),
		Deposited:    amountString(a.Deposited),
		Withdrawn:    amountString(a.Withdrawn),
		CreatedAt:    a.CreatedAt,
		LastActiveAt: a.LastActiveAt,
	}
}

func campaignResult(c *campaign.Campaign) CampaignResult {
	return CampaignResult{
		ID:             c.ID,
		Client:         crypto.FormatAddress(c.Client),
		Type:           c.Type,
		Budget:         amountString(c.Budget),
		Payment:        amountString(c.Payment),
		Spent:          amountString(c.Spent),
		PerformanceBps: c.PerformanceBps,
		Executed:       c.Executed,
		Status:         c.Status.String(),
		CreatedAt:      c.CreatedAt,
		CompletedAt:    c.CompletedAt,
		Bonus:          amountString(c.Bonus),
		BonusPaid:      c.BonusPaid,
	}
}

func campaignStatsResult(s *campaign.Stats) CampaignStatsResult {
	return CampaignStatsResult{
		TotalCampaigns:     s.TotalCampaigns,
		ExecutedCampaigns:  s.ExecutedCampaigns,
		AveragePerformance: s.AveragePerformance,
		TotalBonusesPaid:   amountString(s.TotalBonusesPaid),
		BonusesSkipped:     s.BonusesSkipped,
	}
}

func accessResult(agent [20]byte, contentID uint64, grant *access.Grant) AccessResult {
	out := AccessResult{
		Agent:     crypto.FormatAddress(agent),
		ContentID: contentID,
		TotalPaid: "0",
	}
	if grant != nil {
		out.HasAccess = grant.AccessCount > 0
		out.AccessCount = grant.AccessCount
		out.TotalPaid = amountString(grant.TotalPaid)
		out.LastTag = grant.LastTag
		out.LastAccessAt = grant.LastAccessAt
	}
	return out
}

func paramsResult(p params.Params, pauses params.Pauses) ParamsResult {
	paused := pauses.Modules()
	if paused == nil {
		paused = []string{}
	}
	return ParamsResult{
		Admin:             crypto.FormatAddress(p.Admin),
		Operator:          optionalAddress(p.Operator),
		CampaignAgent:     optionalAddress(p.CampaignAgent),
		PlatformFee:       p.PlatformFee,
		FeeMode:           p.FeeMode.String(),
		RegistrationFee:   amountString(p.RegistrationFee),
		MinPrice:          amountString(p.MinPrice),
		MaxPrice:          amountString(p.MaxPrice),
		CampaignBasePrice: amountString(p.CampaignBasePrice),
		PerformanceFeeBps: p.PerformanceFeeBps,
		Paused:            paused,
	}
}

func feeTotalsResult(t *fees.Totals) FeeTotalsResult {
	return FeeTotalsResult{
		Domain: t.Domain,
		Wallet: optionalAddress(t.Wallet),
		Gross:  amountString(t.Gross),
		Fee:    amountString(t.Fee),
		Net:    amountString(t.Net),
	}
}
