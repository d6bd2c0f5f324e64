package embedded

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

// Users live under user/<id>. email/<email> holds the id and keeps emails unique.

func userKey(id string) []byte     { return []byte(prefixUser + id) }
func emailKey(email string) []byte { return []byte(prefixEmail + email) }

func userNotFound() error {
	return domain.NotFound("user.get", "User not found")
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	return s.update("user.create", func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(u.Email)); err == nil {
			return &domain.Error{Op: "user.create", Kind: domain.ErrDuplicate, Message: "email already registered"}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey(u.Email), []byte(u.ID)); err != nil {
			return err
		}
		return setJSON(txn, userKey(u.ID), u)
	})
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &u)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, userNotFound()
	}
	return u, err
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(string(id)), &u)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, userNotFound()
	}
	return u, err
}

// UpdateUser applies fn to the stored user and writes the result in the same transaction.
// The email index is left alone; profile updates never change the email.
func (s *Store) UpdateUser(_ context.Context, id string, fn func(*domain.User) error) (domain.User, error) {
	var u domain.User
	err := s.update("user.update", func(txn *badger.Txn) error {
		if err := getJSON(txn, userKey(id), &u); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return userNotFound()
			}
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		return setJSON(txn, userKey(id), u)
	})
	return u, err
}
