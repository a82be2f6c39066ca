package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/byblosmedia/bybx-activation/interfaces"
	badger "github.com/dgraph-io/badger/v4"
)

// BadgerLedger persists device bindings in a local BadgerDB key-value store.
// Bindings are keyed by (order, product) and stored as JSON.
type BadgerLedger struct {
	db  *badger.DB
	log *slog.Logger
}

// NewBadgerLedger opens (or creates) a binding ledger in the given directory.
func NewBadgerLedger(dir string, log *slog.Logger) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logger is too chatty; we log at this layer

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open binding ledger: %w", err)
	}

	return &BadgerLedger{db: db, log: log}, nil
}

func bindingKey(orderNumber string, productID int32) []byte {
	return []byte(fmt.Sprintf("binding/%s/%d", orderNumber, productID))
}

// Lookup returns the binding for an (order, product) pair.
func (l *BadgerLedger) Lookup(ctx context.Context, orderNumber string, productID int32) (*interfaces.Binding, error) {
	var binding interfaces.Binding

	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bindingKey(orderNumber, productID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &binding)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, interfaces.ErrBindingNotFound
	} else if err != nil {
		return nil, fmt.Errorf("ledger lookup failed: %w", err)
	}

	return &binding, nil
}

// Record stores a new binding. Recording over an existing binding fails with
// ErrAlreadyBound; rebinding decisions belong to the handler, not the store.
func (l *BadgerLedger) Record(ctx context.Context, binding interfaces.Binding) error {
	key := bindingKey(binding.OrderNumber, binding.ProductID)

	value, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("could not encode binding: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return interfaces.ErrAlreadyBound
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrAlreadyBound) {
			return err
		}
		return fmt.Errorf("could not record binding: %w", err)
	}

	l.log.Debug("binding recorded",
		slog.String("orderNumber", binding.OrderNumber),
		slog.Int("productId", int(binding.ProductID)))
	return nil
}

// Snapshot serializes all bindings as a JSON array for archival.
func (l *BadgerLedger) Snapshot(ctx context.Context) ([]byte, error) {
	var bindings []interfaces.Binding

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("binding/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var binding interfaces.Binding
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &binding)
			})
			if err != nil {
				return err
			}
			bindings = append(bindings, binding)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not snapshot ledger: %w", err)
	}

	return json.Marshal(bindings)
}

// Restore loads bindings from a previous snapshot. Existing bindings for the
// same pairs are preserved; restore never downgrades a live ledger.
func (l *BadgerLedger) Restore(ctx context.Context, snapshot []byte) error {
	var bindings []interfaces.Binding
	if err := json.Unmarshal(snapshot, &bindings); err != nil {
		return fmt.Errorf("could not parse ledger snapshot: %w", err)
	}

	for _, binding := range bindings {
		err := l.Record(ctx, binding)
		if errors.Is(err, interfaces.ErrAlreadyBound) {
			continue
		} else if err != nil {
			return err
		}
	}

	l.log.Info("ledger restored", slog.Int("bindings", len(bindings)))
	return nil
}

// Close releases the underlying store.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
