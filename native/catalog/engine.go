package catalog

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"agentpay/core/events"
	"agentpay/native/common"
	"agentpay/native/params"
	"agentpay/native/registry"
)

var (
	errNilState  = errors.New("catalog engine: state not configured")
	errNilParams = errors.New("catalog engine: params not configured")
)

type engineState interface {
	CatalogContentGet(id uint64) (*Content, bool, error)
	CatalogContentPut(content *Content) error
	CatalogNextID() (uint64, error)
	CatalogLastID() (uint64, error)
	CatalogFingerprintGet(fp string) (uint64, bool, error)
	CatalogFingerprintPut(fp string, id uint64) error
	CatalogCreatorContents(creator [20]byte) ([]uint64, error)
	CatalogCreatorContentAppend(creator [20]byte, id uint64) error
	RegistryCreatorGet(addr [20]byte) (*registry.Creator, bool, error)
	RegistryCreatorPut(creator *registry.Creator) error
}

type paramsSource interface {
	Params() (params.Params, error)
}

// Engine manages the content catalog.
type Engine struct {
	state   engineState
	params  paramsSource
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a catalog engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetParams configures the parameter source.
func (e *Engine) SetParams(p paramsSource) { e.params = p }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.params == nil {
		return errNilParams
	}
	return nil
}

func (e *Engine) checkPrice(price *big.Int) error {
	cfg, err := e.params.Params()
	if err != nil {
		return err
	}
	if !cfg.InPriceBounds(price) {
		return fmt.Errorf("catalog: price %s outside [%s, %s]: %w", price, cfg.MinPrice, cfg.MaxPrice, common.ErrPriceOutOfRange)
	}
	return nil
}

// RegisterContent lists a new content item for the calling creator.
func (e *Engine) RegisterContent(caller [20]byte, title, description, fingerprint string, price *big.Int) (*Content, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	creator, ok, err := e.state.RegistryCreatorGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok || !creator.Active() {
		return nil, fmt.Errorf("catalog: caller is not an active creator: %w", common.ErrUnauthorized)
	}
	fingerprint = NormalizeFingerprint(fingerprint)
	if title == "" || len(title) > MaxTitleLength || fingerprint == "" {
		return nil, fmt.Errorf("catalog: title and fingerprint required: %w", common.ErrInvalidInput)
	}
	if _, claimed, err := e.state.CatalogFingerprintGet(fingerprint); err != nil {
		return nil, err
	} else if claimed {
		return nil, fmt.Errorf("catalog: fingerprint %s: %w", fingerprint, common.ErrDuplicateContent)
	}
	if err := e.checkPrice(price); err != nil {
		return nil, err
	}
	id, err := e.state.CatalogNextID()
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	content := &Content{
		ID:           id,
		Creator:      caller,
		Title:        title,
		Description:  description,
		Fingerprint:  fingerprint,
		Price:        new(big.Int).Set(price),
		Status:       common.StatusActive,
		TotalRevenue: big.NewInt(0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.state.CatalogContentPut(content); err != nil {
		return nil, err
	}
	if err := e.state.CatalogFingerprintPut(fingerprint, id); err != nil {
		return nil, err
	}
	if err := e.state.CatalogCreatorContentAppend(caller, id); err != nil {
		return nil, err
	}
	creator.ContentCount++
	if err := e.state.RegistryCreatorPut(creator); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(contentRegisteredEvent(content)))
	return content.Clone(), nil
}

// UpdateContent applies the non-empty fields of update to a content item
// owned by the caller.
func (e *Engine) UpdateContent(caller [20]byte, id uint64, update ContentUpdate) (*Content, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	content, ok, err := e.state.CatalogContentGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalog: content %d: %w", id, common.ErrNotFound)
	}
	if content.Creator != caller {
		return nil, fmt.Errorf("catalog: content %d not owned by caller: %w", id, common.ErrUnauthorized)
	}
	changed := false
	if update.Title != "" && update.Title != content.Title {
		if len(update.Title) > MaxTitleLength {
			return nil, fmt.Errorf("catalog: title too long: %w", common.ErrInvalidInput)
		}
		content.Title = update.Title
		changed = true
	}
	if update.Description != "" && update.Description != content.Description {
		content.Description = update.Description
		changed = true
	}
	if update.Price != nil && update.Price.Sign() != 0 {
		if err := e.checkPrice(update.Price); err != nil {
			return nil, err
		}
		if update.Price.Cmp(content.Price) != 0 {
			content.Price = new(big.Int).Set(update.Price)
			changed = true
		}
	}
	if update.Active != nil {
		status := common.StatusInactive
		if *update.Active {
			status = common.StatusActive
		}
		if status != content.Status {
			content.Status = status
			changed = true
		}
	}
	if !changed {
		return content.Clone(), nil
	}
	content.UpdatedAt = e.nowFn()
	if err := e.state.CatalogContentPut(content); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(contentUpdatedEvent(content)))
	return content.Clone(), nil
}

// Content returns the content item with the given id.
func (e *Engine) Content(id uint64) (*Content, error) {
	if e.state == nil {
		return nil, errNilState
	}
	content, ok, err := e.state.CatalogContentGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalog: content %d: %w", id, common.ErrNotFound)
	}
	return content, nil
}

// ContentByFingerprint resolves the content item claiming fp.
func (e *Engine) ContentByFingerprint(fp string) (*Content, error) {
	if e.state == nil {
		return nil, errNilState
	}
	id, ok, err := e.state.CatalogFingerprintGet(NormalizeFingerprint(fp))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalog: fingerprint %s: %w", fp, common.ErrNotFound)
	}
	return e.Content(id)
}

// CreatorContents lists the ids of every content item owned by creator, in
// registration order.
func (e *Engine) CreatorContents(creator [20]byte) ([]uint64, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.CatalogCreatorContents(creator)
}

// CheckBounds fails with ErrPriceOutOfRange when any listed content, active
// or not, is priced outside [min, max].
func (e *Engine) CheckBounds(min, max *big.Int) error {
	if e.state == nil {
		return errNilState
	}
	last, err := e.state.CatalogLastID()
	if err != nil {
		return err
	}
	for id := uint64(1); id <= last; id++ {
		content, ok, err := e.state.CatalogContentGet(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if content.Price.Cmp(min) < 0 || content.Price.Cmp(max) > 0 {
			return fmt.Errorf("catalog: content %d priced %s: %w", id, content.Price, common.ErrPriceOutOfRange)
		}
	}
	return nil
}
