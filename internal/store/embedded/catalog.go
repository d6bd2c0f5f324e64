package embedded

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

func (s *Store) ListMaterials(_ context.Context, f domain.MaterialFilter) ([]domain.Material, error) {
	out := []domain.Material{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJSON(txn, prefixMaterial, func() any { return &domain.Material{} }, func(v any) {
			m := *v.(*domain.Material)
			if f.Match(m) {
				out = append(out, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetMaterial(_ context.Context, id domain.MaterialID) (domain.Material, error) {
	var m domain.Material
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, materialKey(id), &m)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Material{}, materialNotFound(id)
	}
	return m, err
}

func (s *Store) CreateMaterial(_ context.Context, m domain.Material) error {
	return s.update("material.create", func(txn *badger.Txn) error {
		if _, err := txn.Get(materialKey(m.ID)); err == nil {
			return &domain.Error{Op: "material.create", Kind: domain.ErrDuplicate, Message: "material already exists"}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, materialKey(m.ID), m)
	})
}

// UpdateMaterial applies fn to the stored material and writes the result in the same transaction.
func (s *Store) UpdateMaterial(_ context.Context, id domain.MaterialID, fn func(*domain.Material) error) (domain.Material, error) {
	var m domain.Material
	err := s.update("material.update", func(txn *badger.Txn) error {
		if err := getJSON(txn, materialKey(id), &m); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return materialNotFound(id)
			}
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		return setJSON(txn, materialKey(id), m)
	})
	return m, err
}

func (s *Store) DeleteMaterial(_ context.Context, id domain.MaterialID, check func(domain.Material) error) error {
	return s.update("material.delete", func(txn *badger.Txn) error {
		var m domain.Material
		if err := getJSON(txn, materialKey(id), &m); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return materialNotFound(id)
			}
			return err
		}
		if err := check(m); err != nil {
			return err
		}
		return txn.Delete(materialKey(id))
	})
}

func (s *Store) update(op string, fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return domain.Conflict(op, err)
	}
	return err
}
