package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/byblosmedia/bybx-activation/interfaces"
)

// MemoryLedger keeps bindings in process memory. Suitable for tests and
// development; a restart loses all bindings.
type MemoryLedger struct {
	mu       sync.RWMutex
	bindings map[string]interfaces.Binding
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{bindings: make(map[string]interfaces.Binding)}
}

func memoryKey(orderNumber string, productID int32) string {
	return fmt.Sprintf("%s/%d", orderNumber, productID)
}

// Lookup returns the binding for an (order, product) pair.
func (l *MemoryLedger) Lookup(ctx context.Context, orderNumber string, productID int32) (*interfaces.Binding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	binding, ok := l.bindings[memoryKey(orderNumber, productID)]
	if !ok {
		return nil, interfaces.ErrBindingNotFound
	}
	return &binding, nil
}

// Record stores a new binding.
func (l *MemoryLedger) Record(ctx context.Context, binding interfaces.Binding) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := memoryKey(binding.OrderNumber, binding.ProductID)
	if _, ok := l.bindings[key]; ok {
		return interfaces.ErrAlreadyBound
	}
	l.bindings[key] = binding
	return nil
}

// Snapshot serializes all bindings as a JSON array.
func (l *MemoryLedger) Snapshot(ctx context.Context) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bindings := make([]interfaces.Binding, 0, len(l.bindings))
	for _, b := range l.bindings {
		bindings = append(bindings, b)
	}
	return json.Marshal(bindings)
}

// Restore loads bindings from a snapshot, preserving existing entries.
func (l *MemoryLedger) Restore(ctx context.Context, snapshot []byte) error {
	var bindings []interfaces.Binding
	if err := json.Unmarshal(snapshot, &bindings); err != nil {
		return fmt.Errorf("could not parse ledger snapshot: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, binding := range bindings {
		key := memoryKey(binding.OrderNumber, binding.ProductID)
		if _, ok := l.bindings[key]; !ok {
			l.bindings[key] = binding
		}
	}
	return nil
}

// Close is a no-op for the in-memory ledger.
func (l *MemoryLedger) Close() error {
	return nil
}
