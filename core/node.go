package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"agentpay/core/events"
	"agentpay/core/genesis"
	"agentpay/core/types"
	"agentpay/storage"
	"agentpay/storage/trie"
)

var headKey = []byte("agentpay/head")

type head struct {
	Root   []byte
	Height uint64
}

// Node is the central controller. It owns the ledger, serializes every
// write behind a single lock and commits each applied transaction.
type Node struct {
	db     storage.Database
	ledger *Ledger
	logger *slog.Logger

	mu      sync.RWMutex
	height  uint64
	pending []*types.Event

	subsMu  sync.Mutex
	subs    map[uint64]chan *types.Event
	nextSub uint64
	closed  bool
}

// NewNode opens the ledger at the persisted head of db. When db holds no
// head the genesis spec is applied and committed first.
func NewNode(db storage.Database, spec *genesis.GenesisSpec) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("database must not be nil")
	}
	current, err := loadHead(db)
	if errors.Is(err, storage.ErrNotFound) {
		if spec == nil {
			return nil, fmt.Errorf("empty database and no genesis spec")
		}
		root, err := genesis.BuildGenesisFromSpec(spec, db)
		if err != nil {
			return nil, fmt.Errorf("build genesis: %w", err)
		}
		current = &head{Root: root.Bytes()}
		if err := storeHead(db, current); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	stateTrie, err := trie.NewTrie(db, current.Root)
	if err != nil {
		return nil, fmt.Errorf("open state at %x: %w", current.Root, err)
	}
	n := &Node{
		db:     db,
		ledger: NewLedger(stateTrie),
		logger: slog.Default(),
		height: current.Height,
		subs:   make(map[uint64]chan *types.Event),
	}
	n.ledger.SetEmitter(nodeEmitter{n})
	return n, nil
}

func loadHead(db storage.Database) (*head, error) {
	raw, err := db.Get(headKey)
	if err != nil {
		return nil, err
	}
	h := new(head)
	if err := rlp.DecodeBytes(raw, h); err != nil {
		return nil, fmt.Errorf("decode head: %w", err)
	}
	return h, nil
}

func storeHead(db storage.Database, h *head) error {
	encoded, err := rlp.EncodeToBytes(h)
	if err != nil {
		return err
	}
	return db.Put(headKey, encoded)
}

// nodeEmitter holds committed ledger events until the node has persisted
// the state they belong to.
type nodeEmitter struct{ n *Node }

func (e nodeEmitter) Emit(evt events.Event) {
	if payload := events.Unwrap(evt); payload != nil {
		e.n.pending = append(e.n.pending, payload)
	}
}

// SetLogger overrides the node and ledger logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logger = logger
	n.ledger.SetLogger(logger)
}

// SetNowFunc overrides the ledger clock.
func (n *Node) SetNowFunc(now func() int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ledger.SetNowFunc(now)
}

// SubmitTransaction applies a signed transaction and commits the result.
// Rejected transactions return an error and leave state untouched; failed
// calls return a receipt carrying the failure reason.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var receipt *types.Receipt
	err := n.Update(func(l *Ledger) error {
		var err error
		receipt, err = l.ApplyTransaction(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Update runs fn with exclusive access to the ledger and commits the
// resulting state. When fn fails uncommitted changes are discarded.
func (n *Node) Update(fn func(*Ledger) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	parent := n.ledger.CommittedRoot()
	n.pending = nil
	if err := fn(n.ledger); err != nil {
		n.pending = nil
		if resetErr := n.ledger.Reset(parent); resetErr != nil {
			return errors.Join(err, resetErr)
		}
		return err
	}
	root, err := n.ledger.Commit(n.height + 1)
	if err != nil {
		n.pending = nil
		return fmt.Errorf("commit: %w", err)
	}
	next := &head{Root: root.Bytes(), Height: n.height + 1}
	if err := storeHead(n.db, next); err != nil {
		n.pending = nil
		return fmt.Errorf("persist head: %w", err)
	}
	n.height = next.Height
	published := n.pending
	n.pending = nil
	n.publish(published)
	n.logger.Debug("ledger state committed",
		slog.Uint64("height", next.Height),
		slog.String("root", root.Hex()),
		slog.Int("events", len(published)))
	return nil
}

// View runs fn against the committed ledger state. Trie reads resolve nodes
// lazily and mutate the trie, so views hold the exclusive lock.
func (n *Node) View(fn func(*Ledger) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(n.ledger)
}

// Height returns the number of commits applied on top of genesis.
func (n *Node) Height() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.height
}

// StateRoot returns the last committed state root.
func (n *Node) StateRoot() common.Hash {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.CommittedRoot()
}

// Subscribe streams committed events. Slow subscribers drop events once
// their buffer is full. The returned function cancels the subscription.
func (n *Node) Subscribe(buffer int) (<-chan *types.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *types.Event, buffer)
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	id := n.nextSub
	n.nextSub++
	n.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.subsMu.Lock()
			defer n.subsMu.Unlock()
			if sub, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(sub)
			}
		})
	}
}

func (n *Node) publish(evts []*types.Event) {
	if len(evts) == 0 {
		return
	}
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	for _, evt := range evts {
		for id, ch := range n.subs {
			select {
			case ch <- evt:
			default:
				n.logger.Warn("dropping event for slow subscriber",
					slog.Uint64("subscriber", id),
					slog.String("event", evt.Type))
			}
		}
	}
}

// Close ends every subscription. The database is owned by the caller.
func (n *Node) Close() {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
