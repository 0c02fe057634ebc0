// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package retention

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("retention store is closed")

const keyPrefix = "policy:"

// Config configures the Badger database backing the store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. Intended for tests.
	InMemory bool

	// SyncWrites fsyncs every policy update.
	SyncWrites bool

	// Compression enables Snappy compression of value log entries.
	Compression bool
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("retention store path is required unless in-memory")
	}
	return nil
}

// BadgerStore implements audit.PolicyStore on BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

var _ audit.PolicyStore = (*BadgerStore)(nil)

// Open opens (or creates) the policy database.
func Open(cfg Config) (*BadgerStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retention config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = 16 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Retention policy store opened")
	return &BadgerStore{db: db}, nil
}

func policyKey(category audit.Category, severity audit.Severity) []byte {
	return []byte(keyPrefix + string(category) + ":" + string(severity))
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// GetPolicy implements audit.PolicyStore. It returns (nil, nil) when no
// policy is stored for the pair.
func (s *BadgerStore) GetPolicy(ctx context.Context, category audit.Category, severity audit.Severity) (*audit.RetentionPolicy, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var policy *audit.RetentionPolicy
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(policyKey(category, severity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var p audit.RetentionPolicy
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			policy = &p
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get retention policy %s/%s: %w", category, severity, err)
	}
	return policy, nil
}

// PutPolicy implements audit.PolicyStore, replacing any existing policy for
// the same category and severity.
func (s *BadgerStore) PutPolicy(ctx context.Context, policy *audit.RetentionPolicy) error {
	if policy == nil {
		return errors.New("policy cannot be nil")
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshal retention policy: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(policyKey(policy.Category, policy.Severity), data))
	})
	if err != nil {
		return fmt.Errorf("put retention policy %s/%s: %w", policy.Category, policy.Severity, err)
	}

	logging.Debug().
		Str("category", string(policy.Category)).
		Str("severity", string(policy.Severity)).
		Int("retention_days", policy.RetentionDays).
		Msg("Retention policy stored")
	return nil
}

// DeletePolicy removes a stored policy. Deleting a missing policy is not an
// error.
func (s *BadgerStore) DeletePolicy(ctx context.Context, category audit.Category, severity audit.Severity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(policyKey(category, severity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete retention policy %s/%s: %w", category, severity, err)
	}
	return nil
}

// ListPolicies implements audit.PolicyStore. Policies are ordered by
// category then severity. Entries that fail to decode are logged and
// skipped.
func (s *BadgerStore) ListPolicies(ctx context.Context) ([]audit.RetentionPolicy, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	policies := []audit.RetentionPolicy{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var p audit.RetentionPolicy
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping unreadable retention policy")
				continue
			}
			policies = append(policies, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list retention policies: %w", err)
	}

	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Category != policies[j].Category {
			return policies[i].Category < policies[j].Category
		}
		return policies[i].Severity < policies[j].Severity
	})
	return policies, nil
}

// RunGC reclaims value log space. badger.ErrNoRewrite means there was
// nothing to collect and is not reported.
func (s *BadgerStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		return err
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Retention policy store closed")
	return nil
}
