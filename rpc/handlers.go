package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"agentpay/core"
	"agentpay/core/types"
	"agentpay/crypto"
	"agentpay/native/catalog"
	"agentpay/native/custody"
	nativecommon "agentpay/native/common"
	"agentpay/native/registry"
)

func (s *Server) sendTransaction(r *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 1, 1); rpcErr != nil {
		return nil, rpcErr, status
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		rpcErr, status := invalidParams("invalid transaction: %v", err)
		return nil, rpcErr, status
	}
	receipt, err := s.node.SubmitTransaction(r.Context(), &tx)
	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, &RPCError{Code: codeServerError, Message: "request cancelled"}, http.StatusServiceUnavailable
		}
		rpcErr, status := ledgerError(err)
		return nil, rpcErr, status
	}
	return receiptResult(receipt), nil, http.StatusOK
}

func (s *Server) getBalance(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	addr, rpcErr, status := s.singleAddress(req)
	if rpcErr != nil {
		return nil, rpcErr, status
	}
	var result BalanceResult
	err := s.node.View(func(l *core.Ledger) error {
		account, err := l.Account(addr)
		if err != nil {
			return err
		}
		result = BalanceResult{
			Address: crypto.FormatAddress(addr),
			Balance: amountString(account.Balance),
			Nonce:   account.Nonce,
		}
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) getNonce(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	addr, rpcErr, status := s.singleAddress(req)
	if rpcErr != nil {
		return nil, rpcErr, status
	}
	var nonce uint64
	err := s.node.View(func(l *core.Ledger) error {
		var err error
		nonce, err = l.Nonce(addr)
		return err
	})
	return viewResult(nonce, err)
}

// getCreator accepts an address or a registered name.
func (s *Server) getCreator(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	key, rpcErr, status := s.singleString(req, "creator")
	if rpcErr != nil {
		return nil, rpcErr, status
	}
	var result CreatorResult
	err := s.node.View(func(l *core.Ledger) error {
		var (
			creator *registry.Creator
			err     error
		)
		if addr, parseErr := crypto.ParseAddress(key); parseErr == nil {
			creator, err = l.Registry.Creator(addr)
		} else {
			creator, err = l.Registry.CreatorByName(key)
		}
		if err != nil {
			return err
		}
		result = creatorResult(creator)
		return nil
	})
	return viewResult(result, err)
}

// getAgent accepts an address or a registered name.
func (s *Server) getAgent(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	key, rpcErr, status := s.singleString(req, "agent")
	if rpcErr != nil {
		return nil, rpcErr, status
	}
	var result AgentResult
	err := s.node.View(func(l *core.Ledger) error {
		var (
			agent *registry.Agent
			err   error
		)
		if addr, parseErr := crypto.ParseAddress(key); parseErr == nil {
			agent, err = l.Registry.Agent(addr)
		} else {
			agent, err = l.Registry.AgentByName(key)
		}
		if err != nil {
			return err
		}
		result = agentResult(agent)
		return nil
	})
	return viewResult(result, err)
}

// getContent accepts a content id or a fingerprint string.
func (s *Server) getContent(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 1, 1); rpcErr != nil {
		return nil, rpcErr, status
	}
	var id uint64
	idErr := json.Unmarshal(req.Params[0], &id)
	var fingerprint string
	if idErr != nil {
		if err := json.Unmarshal(req.Params[0], &fingerprint); err != nil || strings.TrimSpace(fingerprint) == "" {
			rpcErr, status := invalidParams("content id or fingerprint required")
			return nil, rpcErr, status
		}
	}
	var result ContentResult
	err := s.node.View(func(l *core.Ledger) error {
		var (
			content *catalog.Content
			err     error
		)
		if idErr == nil {
			content, err = l.Catalog.Content(id)
		} else {
			content, err = l.Catalog.ContentByFingerprint(fingerprint)
		}
		if err != nil {
			return err
		}
		result = contentResult(content)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) getCreatorContent(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	addr, rpcErr, status := s.singleAddress(req)
	if rpcErr != nil {
		return nil, rpcErr, status
	}
	result := []ContentResult{}
	err := s.node.View(func(l *core.Ledger) error {
		ids, err := l.Catalog.CreatorContents(addr)
		if err != nil {
			return err
		}
		for _, id := range ids {
			content, err := l.Catalog.Content(id)
			if err != nil {
				return err
			}
			result = append(result, contentResult(content))
		}
		return nil
	})
	return viewResult(result, err)
}

// getCustodyAccount accepts an account id or the owning agent's address.
func (s *Server) getCustodyAccount(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 1, 1); rpcErr != nil {
		return nil, rpcErr, status
	}
	id, idErr := parseUint(req.Params[0])
	var owner [20]byte
	if idErr != nil {
		addr, err := parseAddressParam(req.Params[0])
		if err != nil {
			rpcErr, status := invalidParams("custody account id or owner address required")
			return nil, rpcErr, status
		}
		owner = addr
	}
	var result CustodyAccountResult
	err := s.node.View(func(l *core.Ledger) error {
		var (
			account *custody.Account
			err     error
		)
		if idErr == nil {
			account, err = l.Custody.Account(id)
		} else {
			account, err = l.Custody.AccountByOwner(owner)
		}
		if err != nil {
			return err
		}
		result = custodyAccountResult(account)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) getCampaign(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 1, 1); rpcErr != nil {
		return nil, rpcErr, status
	}
	id, err := parseUint(req.Params[0])
	if err != nil {
		rpcErr, status := invalidParams("campaign id: %v", err)
		return nil, rpcErr, status
	}
	var result CampaignResult
	err = s.node.View(func(l *core.Ledger) error {
		c, err := l.Campaign.Campaign(id)
		if err != nil {
			return err
		}
		result = campaignResult(c)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) getCampaignStats(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 0, 0); rpcErr != nil {
		return nil, rpcErr, status
	}
	var result CampaignStatsResult
	err := s.node.View(func(l *core.Ledger) error {
		stats, err := l.Campaign.Stats()
		if err != nil {
			return err
		}
		result = campaignStatsResult(stats)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) hasAccess(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 2, 2); rpcErr != nil {
		return nil, rpcErr, status
	}
	agent, err := parseAddressParam(req.Params[0])
	if err != nil {
		rpcErr, status := invalidParams("agent: %v", err)
		return nil, rpcErr, status
	}
	contentID, err := parseUint(req.Params[1])
	if err != nil {
		rpcErr, status := invalidParams("content id: %v", err)
		return nil, rpcErr, status
	}
	var result AccessResult
	err = s.node.View(func(l *core.Ledger) error {
		grant, err := l.Access.Grant(agent, contentID)
		if errors.Is(err, nativecommon.ErrNotFound) {
			grant, err = nil, nil
		}
		if err != nil {
			return err
		}
		result = accessResult(agent, contentID, grant)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) getParams(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 0, 0); rpcErr != nil {
		return nil, rpcErr, status
	}
	var result ParamsResult
	err := s.node.View(func(l *core.Ledger) error {
		p, err := l.Params.Params()
		if err != nil {
			return err
		}
		pauses, err := l.Params.Pauses()
		if err != nil {
			return err
		}
		result = paramsResult(p, pauses)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) getFeeTotals(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	domain, rpcErr, status := s.singleString(req, "domain")
	if rpcErr != nil {
		return nil, rpcErr, status
	}
	var result FeeTotalsResult
	err := s.node.View(func(l *core.Ledger) error {
		totals, err := l.FeeTotals(domain)
		if err != nil {
			return err
		}
		result = feeTotalsResult(totals)
		return nil
	})
	return viewResult(result, err)
}

func (s *Server) stateRoot(_ *http.Request, req *RPCRequest) (interface{}, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 0, 0); rpcErr != nil {
		return nil, rpcErr, status
	}
	var result StateRootResult
	_ = s.node.View(func(l *core.Ledger) error {
		result = StateRootResult{Root: l.CommittedRoot().Hex()}
		return nil
	})
	result.Height = s.node.Height()
	return result, nil, http.StatusOK
}

func viewResult(result interface{}, err error) (interface{}, *RPCError, int) {
	if err != nil {
		rpcErr, status := ledgerError(err)
		return nil, rpcErr, status
	}
	return result, nil, http.StatusOK
}

func (s *Server) singleString(req *RPCRequest, field string) (string, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 1, 1); rpcErr != nil {
		return "", rpcErr, status
	}
	var value string
	if err := json.Unmarshal(req.Params[0], &value); err != nil {
		rpcErr, status := invalidParams("%s must be a string", field)
		return "", rpcErr, status
	}
	value = strings.TrimSpace(value)
	if value == "" {
		rpcErr, status := invalidParams("%s required", field)
		return "", rpcErr, status
	}
	return value, nil, 0
}

func (s *Server) singleAddress(req *RPCRequest) ([20]byte, *RPCError, int) {
	if rpcErr, status := s.requireParams(req, 1, 1); rpcErr != nil {
		return [20]byte{}, rpcErr, status
	}
	addr, err := parseAddressParam(req.Params[0])
	if err != nil {
		rpcErr, status := invalidParams("address: %v", err)
		return [20]byte{}, rpcErr, status
	}
	return addr, nil, 0
}

func parseAddressParam(raw json.RawMessage) ([20]byte, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return [20]byte{}, fmt.Errorf("address must be a string")
	}
	return crypto.ParseAddress(value)
}

// parseUint accepts a JSON number or a decimal string.
func parseUint(raw json.RawMessage) (uint64, error) {
	var direct uint64
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("expected an unsigned integer")
	}
	value, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected an unsigned integer")
	}
	return value, nil
}
