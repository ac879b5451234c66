package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/storage"
)

// PolicyRepository implements storage.PolicyRepository for BadgerDB.
type PolicyRepository struct {
	backend *Backend
}

var _ storage.PolicyRepository = (*PolicyRepository)(nil)

// NewPolicyRepository creates a new PolicyRepository over the shared backend.
func NewPolicyRepository(backend *Backend) *PolicyRepository {
	return &PolicyRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *PolicyRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *PolicyRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// WithTransaction delegates to the backend.
func (r *PolicyRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertPolicy writes a policy summary, overwriting any existing summary
// for the same policy number.
func (r *PolicyRepository) UpsertPolicy(ctx context.Context, summary *core.PolicySummary) (*core.PolicySummary, error) {
	if err := core.ValidatePolicyNumber(summary.PolicyNumber); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePolicyKey(summary.PolicyNumber)

		// Preserve the first-write timestamp across overwrites
		existing, err := readPolicy(tx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		// Microsecond precision matches the value encoding.
		now := time.Now().UTC().Truncate(time.Microsecond)
		if existing != nil {
			summary.InsertedAt = existing.InsertedAt
		} else if summary.InsertedAt.IsZero() {
			summary.InsertedAt = now
		}
		summary.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalPolicySummary(summary)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// GetPolicy retrieves a policy summary by policy number.
func (r *PolicyRepository) GetPolicy(ctx context.Context, policyNumber string) (*core.PolicySummary, error) {
	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		return nil, err
	}

	var summary *core.PolicySummary
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		summary, err = readPolicy(tx, makePolicyKey(policyNumber))
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// ListPolicyNumbers returns all stored policy numbers in ascending order.
// Key iteration is already lexicographic, so no extra sort is needed.
func (r *PolicyRepository) ListPolicyNumbers(ctx context.Context) ([]string, error) {
	numbers := []string{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(policyRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if number := policyNumberFromKey(iter.Item().Key()); number != "" {
				numbers = append(numbers, number)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return numbers, nil
}

// readPolicy reads and unmarshals a policy summary by key within a
// transaction. Returns storage.ErrNotFound when the key is absent.
func readPolicy(tx *badger.Txn, key []byte) (*core.PolicySummary, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var summary *core.PolicySummary
	err = item.Value(func(val []byte) error {
		var err error
		summary, err = storage.UnmarshalPolicySummary(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
