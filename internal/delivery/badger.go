package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const tokenKeyPrefix = "delivery:"

// BadgerStore persists tokens so retraction keeps working across restarts.
// Expiry is delegated to badger's per-key TTL.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens (or creates) a badger directory with its own logger
// silenced; an empty dir opens an in-memory instance.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

func tokenKey(id string) []byte {
	return []byte(tokenKeyPrefix + id)
}

func (s *BadgerStore) Put(_ context.Context, t Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(tokenKey(t.ID), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		return nil
	})
}

// Consume reads and deletes the key in one read-write transaction. When two
// callers race, badger rejects the later commit with ErrConflict, which is
// reported the same as an already consumed token.
func (s *BadgerStore) Consume(_ context.Context, id string) (*Token, error) {
	var tok *Token
	err := s.db.Update(func(txn *badger.Txn) error {
		t, _, err := getToken(txn, id)
		if err != nil || t == nil {
			return err
		}
		if err := txn.Delete(tokenKey(id)); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
		tok = t
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *BadgerStore) Attach(_ context.Context, id, deliveredRef string) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		t, item, err := getToken(txn, id)
		if err != nil || t == nil {
			return err
		}
		t.DeliveredRef = deliveredRef

		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal token: %w", err)
		}
		e := badger.NewEntry(tokenKey(id), data)
		// keep the original deadline
		if exp := item.ExpiresAt(); exp > 0 {
			remaining := time.Until(time.Unix(int64(exp), 0))
			if remaining <= 0 {
				return nil
			}
			e = e.WithTTL(remaining)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		found = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	return found, err
}

func (s *BadgerStore) Revoke(_ context.Context, id string) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(tokenKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		if err := txn.Delete(tokenKey(id)); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
		found = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	return found, err
}

func getToken(txn *badger.Txn, id string) (*Token, *badger.Item, error) {
	item, err := txn.Get(tokenKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get token: %w", err)
	}
	var t Token
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &t)
	}); err != nil {
		return nil, nil, fmt.Errorf("decode token: %w", err)
	}
	return &t, item, nil
}
