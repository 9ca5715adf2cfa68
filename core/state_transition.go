package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"agentpay/core/events"
	"agentpay/core/types"
	"agentpay/crypto"
	"agentpay/native/access"
	"agentpay/native/campaign"
	"agentpay/native/catalog"
	nativecommon "agentpay/native/common"
	"agentpay/native/custody"
	"agentpay/native/fees"
	"agentpay/native/registry"
)

// ErrInvalidTransaction marks transactions rejected before execution. A
// rejected transaction consumes no nonce and produces no receipt.
var ErrInvalidTransaction = errors.New("invalid transaction")

// ApplyTransaction verifies the signature and nonce of tx and dispatches it
// to its entry point. Once the nonce matches it is consumed even when the
// call fails; the failure is reported in the receipt.
func (l *Ledger) ApplyTransaction(tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	}
	if l.guard.Held() {
		return nil, nativecommon.ErrReentrantCall
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type 0x%02x", ErrInvalidTransaction, byte(tx.Type))
	}
	if tx.Value != nil && tx.Value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value", ErrInvalidTransaction)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	fromBytes, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	var from [20]byte
	copy(from[:], fromBytes)

	account, err := l.state.GetAccount(from[:])
	if err != nil {
		return nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: %s expected nonce %d, got %d", nativecommon.ErrInvalidNonce, crypto.FormatAddress(from), account.Nonce, tx.Nonce)
	}
	account.Nonce++
	if err := l.state.PutAccount(from[:], account); err != nil {
		return nil, err
	}

	receipt := &types.Receipt{TxHash: hash, Type: tx.Type}
	result, callErr := l.dispatch(from, tx)
	if callErr != nil {
		receipt.Reason = nativecommon.Reason(callErr)
		receipt.Error = callErr.Error()
	} else {
		receipt.Success = true
		receipt.Events = l.Published()
		if summary := summarize(result); summary != nil {
			encoded, err := json.Marshal(summary)
			if err != nil {
				return nil, err
			}
			receipt.Result = string(encoded)
		}
	}
	receipt.Root = l.state.Hash().Bytes()
	return receipt, nil
}

func (l *Ledger) dispatch(from [20]byte, tx *types.Transaction) (interface{}, error) {
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() > 0 && !tx.Type.Payable() {
		return nil, fmt.Errorf("%s: value attached to non-payable call: %w", tx.Type, nativecommon.ErrInvalidInput)
	}

	switch tx.Type {
	case types.TxTypeTransfer:
		var p types.TransferPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		to, err := parseAddress("to", p.To)
		if err != nil {
			return nil, err
		}
		return nil, l.Transfer(from, to, value)

	case types.TxTypeRegisterCreator, types.TxTypeUpdateCreator:
		var p types.CreatorPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		if tx.Type == types.TxTypeRegisterCreator {
			return l.RegisterCreator(from, p.Name)
		}
		return l.UpdateCreator(from, p.Name)

	case types.TxTypeDeactivateCreator:
		return l.SetCreatorStatus(from, false)
	case types.TxTypeReactivateCreator:
		return l.SetCreatorStatus(from, true)

	case types.TxTypeRegisterAgent:
		var p types.AgentPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return l.RegisterAgent(from, p.Name, p.Description, p.Capabilities, value)

	case types.TxTypeUpdateAgent:
		var p types.AgentPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return l.UpdateAgent(from, registry.AgentUpdate{Name: p.Name, Description: p.Description, Capabilities: p.Capabilities})

	case types.TxTypeDeactivateAgent:
		return l.SetAgentStatus(from, false)
	case types.TxTypeReactivateAgent:
		return l.SetAgentStatus(from, true)

	case types.TxTypeRegisterContent:
		var p types.RegisterContentPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		price, err := parseAmount("price", p.Price)
		if err != nil {
			return nil, err
		}
		return l.RegisterContent(from, p.Title, p.Description, p.Fingerprint, price)

	case types.TxTypeUpdateContent:
		var p types.UpdateContentPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		update := catalog.ContentUpdate{Title: p.Title, Description: p.Description, Active: p.Active}
		if strings.TrimSpace(p.Price) != "" {
			price, err := parseAmount("price", p.Price)
			if err != nil {
				return nil, err
			}
			update.Price = price
		}
		return l.UpdateContent(from, p.ContentID, update)

	case types.TxTypeAccessContent:
		var p types.AccessContentPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return l.AccessContent(from, p.ContentID, p.AgentTag, value)

	case types.TxTypeDeposit:
		var p types.DepositPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return l.Deposit(from, p.AccountID, value)

	case types.TxTypeWithdraw:
		var p types.WithdrawPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", p.Amount)
		if err != nil {
			return nil, err
		}
		return l.Withdraw(from, p.AccountID, amount)

	case types.TxTypeExecuteTransaction:
		var p types.ExecuteTransactionPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		target, err := parseAddress("target", p.Target)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("value", p.Value)
		if err != nil {
			return nil, err
		}
		return l.ExecuteTransaction(from, p.AccountID, target, p.Call, amount)

	case types.TxTypeCreateCampaign:
		var p types.CreateCampaignPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		budget, err := parseAmount("budget", p.Budget)
		if err != nil {
			return nil, err
		}
		return l.CreateCampaign(from, p.CampaignType, budget, value)

	case types.TxTypeExecuteCampaign:
		var p types.ExecuteCampaignPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		spent, err := parseAmount("spent", p.Spent)
		if err != nil {
			return nil, err
		}
		return l.ExecuteCampaign(from, p.CampaignID, spent, p.PerformanceBps)

	case types.TxTypeCompleteCampaign:
		var p types.CompleteCampaignPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return l.CompleteCampaign(from, p.CampaignID)

	case types.TxTypeSetPlatformFee:
		var p types.RatePayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return nil, l.SetPlatformFee(from, p.Rate)

	case types.TxTypeSetFeeMode:
		var p types.FeeModePayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		mode, err := fees.ParseMode(p.Mode)
		if err != nil {
			return nil, fmt.Errorf("mode: %v: %w", err, nativecommon.ErrInvalidInput)
		}
		return nil, l.SetFeeMode(from, mode)

	case types.TxTypeSetRegistrationFee, types.TxTypeSetCampaignPrice:
		var p types.AmountPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", p.Amount)
		if err != nil {
			return nil, err
		}
		if tx.Type == types.TxTypeSetRegistrationFee {
			return nil, l.SetRegistrationFee(from, amount)
		}
		return nil, l.SetCampaignBasePrice(from, amount)

	case types.TxTypeSetPriceBounds:
		var p types.PriceBoundsPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		min, err := parseAmount("min", p.Min)
		if err != nil {
			return nil, err
		}
		max, err := parseAmount("max", p.Max)
		if err != nil {
			return nil, err
		}
		return nil, l.SetPriceBounds(from, min, max)

	case types.TxTypeSetPerformanceFee:
		var p types.RatePayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return nil, l.SetPerformanceFee(from, p.Rate)

	case types.TxTypeSetOperator, types.TxTypeSetCampaignAgent, types.TxTypeTransferAdmin:
		var p types.AddressPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return nil, err
		}
		switch tx.Type {
		case types.TxTypeSetOperator:
			return nil, l.SetOperator(from, addr)
		case types.TxTypeSetCampaignAgent:
			return nil, l.SetCampaignAgent(from, addr)
		default:
			return nil, l.TransferAdmin(from, addr)
		}

	case types.TxTypeSetPauses:
		var p types.PausesPayload
		if err := decodePayload(tx, &p); err != nil {
			return nil, err
		}
		return nil, l.SetPauses(from, p.Modules)
	}
	return nil, fmt.Errorf("%s: %w", tx.Type, nativecommon.ErrInvalidInput)
}

// summarize reduces a call result to the identifiers and amounts a receipt
// carries.
func summarize(result interface{}) map[string]string {
	switch r := result.(type) {
	case *registry.Creator:
		return map[string]string{"creator": events.FormatAddress(r.Address), "name": r.Name, "status": r.Status.String()}
	case *registry.Agent:
		return map[string]string{
			"agent":            events.FormatAddress(r.Address),
			"name":             r.Name,
			"status":           r.Status.String(),
			"custodyAccountId": events.FormatUint(r.CustodyID),
		}
	case *catalog.Content:
		return map[string]string{"contentId": events.FormatUint(r.ID), "price": events.FormatAmount(r.Price), "status": r.Status.String()}
	case *access.Settlement:
		return map[string]string{
			"contentId":      events.FormatUint(r.ContentID),
			"payment":        events.FormatAmount(r.Payment),
			"platformFee":    events.FormatAmount(r.PlatformFee),
			"creatorPayment": events.FormatAmount(r.CreatorPayment),
		}
	case *custody.Account:
		return map[string]string{"accountId": events.FormatUint(r.ID), "balance": events.FormatAmount(r.Balance)}
	case *campaign.Campaign:
		return map[string]string{
			"campaignId": events.FormatUint(r.ID),
			"status":     r.Status.String(),
			"bonus":      events.FormatAmount(r.Bonus),
			"bonusPaid":  events.FormatBool(r.BonusPaid),
		}
	default:
		return nil
	}
}

func decodePayload(tx *types.Transaction, out interface{}) error {
	if len(bytes.TrimSpace(tx.Data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(tx.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: decode payload: %v: %w", tx.Type, err, nativecommon.ErrInvalidInput)
	}
	return nil
}

func parseAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid amount %q: %w", field, raw, nativecommon.ErrInvalidInput)
	}
	return amount, nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %v: %w", field, err, nativecommon.ErrInvalidInput)
	}
	return addr, nil
}
