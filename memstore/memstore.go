// Package memstore provides an in-memory row store implementing the
// rowguard.Store contract, with unique indexes, declared foreign keys, and
// atomic transactions.
//
// It backs the engine's unit tests and small embedded deployments; the
// sqlstore package provides the same contract over PostgreSQL and SQLite.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rowguard/rowguard"
)

// Ref declares a foreign-key constraint: the column on rows of a relation
// must reference an existing row of the target relation.
type Ref struct {
	Column string
	Target rowguard.Relation
}

// data is the mutable store state. Transactions clone it, mutate the clone,
// and swap it in on commit, so a failed transaction leaves no residual
// state and readers inside one transaction see one consistent snapshot.
type data struct {
	rows map[rowguard.Relation]map[string]rowguard.Row
	// unique[rel][col][value] = row ID holding that value
	unique map[rowguard.Relation]map[string]map[string]string
}

// Store is an in-memory row store safe for concurrent use.
// Constraint declarations (DeclareUnique, DeclareRef) are not synchronized;
// make them before the store is shared, as part of provisioning.
type Store struct {
	mu         sync.RWMutex
	d          *data
	uniqueCols map[rowguard.Relation][]string
	refs       map[rowguard.Relation][]Ref
}

// New returns an empty store.
func New() *Store {
	return &Store{
		d:          newData(),
		uniqueCols: make(map[rowguard.Relation][]string),
		refs:       make(map[rowguard.Relation][]Ref),
	}
}

func newData() *data {
	return &data{
		rows:   make(map[rowguard.Relation]map[string]rowguard.Row),
		unique: make(map[rowguard.Relation]map[string]map[string]string),
	}
}

// NewRowID returns a fresh opaque row identity.
func NewRowID() string {
	return uuid.NewString()
}

// DeclareUnique adds a uniqueness constraint on a column of a relation.
// Inserts and updates that would duplicate a non-empty value fail with
// rowguard.ErrConstraintViolation.
func (s *Store) DeclareUnique(relation rowguard.Relation, column string) {
	s.uniqueCols[relation] = append(s.uniqueCols[relation], column)
}

// DeclareRef adds a foreign-key constraint on a column of a relation.
// Inserts and updates whose non-empty value references a missing target row
// fail with rowguard.ErrReferentialIntegrity.
func (s *Store) DeclareRef(relation rowguard.Relation, column string, target rowguard.Relation) {
	s.refs[relation] = append(s.refs[relation], Ref{Column: column, Target: target})
}

// Lookup implements rowguard.Store with a keyed point lookup.
func (s *Store) Lookup(_ context.Context, relation rowguard.Relation, id string) (rowguard.Row, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.lookup(relation, id)
}

// Insert adds a row, enforcing declared constraints.
func (s *Store) Insert(ctx context.Context, row rowguard.Row) error {
	return s.WithinTx(ctx, func(tx *Tx) error {
		return tx.Insert(row)
	})
}

// Update replaces a row, enforcing declared constraints. A missing row is
// reported as rowguard.ErrReferentialIntegrity.
func (s *Store) Update(ctx context.Context, row rowguard.Row) error {
	return s.WithinTx(ctx, func(tx *Tx) error {
		return tx.Update(row)
	})
}

// Delete removes a row if present.
func (s *Store) Delete(ctx context.Context, relation rowguard.Relation, id string) error {
	return s.WithinTx(ctx, func(tx *Tx) error {
		return tx.Delete(relation, id)
	})
}

// List returns all rows of a relation ordered by ID.
func (s *Store) List(_ context.Context, relation rowguard.Relation) []rowguard.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.list(relation)
}

// FindByField returns all rows of a relation whose column equals value,
// ordered by ID.
func (s *Store) FindByField(_ context.Context, relation rowguard.Relation, column, value string) []rowguard.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []rowguard.Row
	for _, row := range s.d.rows[relation] {
		if row.Fields[column] == value {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithinTx runs fn inside one atomic transaction. The transaction sees a
// consistent snapshot of the store, including its own writes; concurrent
// transactions are serialized. If fn returns an error, or the context is
// done, nothing is applied.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	clone := s.d.clone()
	tx := &Tx{store: s, d: clone}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.d = clone
	return nil
}

// Tx is a transaction over the store. It implements rowguard.Store, so an
// engine created over the Tx decides from the same snapshot the
// transaction's writes land in.
type Tx struct {
	store *Store
	d     *data
}

// Lookup implements rowguard.Store within the transaction snapshot.
func (tx *Tx) Lookup(_ context.Context, relation rowguard.Relation, id string) (rowguard.Row, bool, error) {
	row, ok, err := tx.d.lookup(relation, id)
	return row, ok, err
}

// Insert adds a row within the transaction.
func (tx *Tx) Insert(row rowguard.Row) error {
	if _, exists := tx.d.rows[row.Relation][row.ID]; exists {
		return fmt.Errorf("%w: duplicate row %s", rowguard.ErrConstraintViolation, row)
	}
	if err := tx.checkConstraints(row); err != nil {
		return err
	}
	tx.d.put(row)
	tx.indexUnique(row)
	return nil
}

// Update replaces a row within the transaction.
func (tx *Tx) Update(row rowguard.Row) error {
	old, exists := tx.d.rows[row.Relation][row.ID]
	if !exists {
		return fmt.Errorf("%w: update of missing row %s", rowguard.ErrReferentialIntegrity, row)
	}
	tx.unindexUnique(old)
	if err := tx.checkConstraints(row); err != nil {
		tx.indexUnique(old)
		return err
	}
	tx.d.put(row)
	tx.indexUnique(row)
	return nil
}

// Delete removes a row within the transaction.
func (tx *Tx) Delete(relation rowguard.Relation, id string) error {
	old, exists := tx.d.rows[relation][id]
	if !exists {
		return nil
	}
	tx.unindexUnique(old)
	delete(tx.d.rows[relation], id)
	return nil
}

// List returns all rows of a relation in the snapshot, ordered by ID.
func (tx *Tx) List(relation rowguard.Relation) []rowguard.Row {
	return tx.d.list(relation)
}

// FindByField returns rows of a relation whose column equals value, ordered
// by ID.
func (tx *Tx) FindByField(relation rowguard.Relation, column, value string) []rowguard.Row {
	var out []rowguard.Row
	for _, row := range tx.d.rows[relation] {
		if row.Fields[column] == value {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *Tx) checkConstraints(row rowguard.Row) error {
	for _, col := range tx.store.uniqueCols[row.Relation] {
		v := row.Fields[col]
		if v == "" {
			continue
		}
		if holder, taken := tx.d.uniqueHolder(row.Relation, col, v); taken && holder != row.ID {
			return fmt.Errorf("%w: %s.%s = %q already taken", rowguard.ErrConstraintViolation, row.Relation, col, v)
		}
	}
	for _, ref := range tx.store.refs[row.Relation] {
		v := row.Fields[ref.Column]
		if v == "" {
			continue
		}
		if _, ok, _ := tx.d.lookup(ref.Target, v); !ok {
			return fmt.Errorf("%w: %s.%s references missing %s:%s", rowguard.ErrReferentialIntegrity, row.Relation, ref.Column, ref.Target, v)
		}
	}
	return nil
}

func (tx *Tx) indexUnique(row rowguard.Row) {
	for _, col := range tx.store.uniqueCols[row.Relation] {
		if v := row.Fields[col]; v != "" {
			tx.d.setUnique(row.Relation, col, v, row.ID)
		}
	}
}

func (tx *Tx) unindexUnique(row rowguard.Row) {
	for _, col := range tx.store.uniqueCols[row.Relation] {
		if v := row.Fields[col]; v != "" {
			tx.d.clearUnique(row.Relation, col, v)
		}
	}
}

func (d *data) lookup(relation rowguard.Relation, id string) (rowguard.Row, bool, error) {
	row, ok := d.rows[relation][id]
	if !ok {
		return rowguard.Row{}, false, nil
	}
	return copyRow(row), true, nil
}

func (d *data) put(row rowguard.Row) {
	byID, ok := d.rows[row.Relation]
	if !ok {
		byID = make(map[string]rowguard.Row)
		d.rows[row.Relation] = byID
	}
	byID[row.ID] = copyRow(row)
}

func (d *data) list(relation rowguard.Relation) []rowguard.Row {
	byID := d.rows[relation]
	out := make([]rowguard.Row, 0, len(byID))
	for _, row := range byID {
		out = append(out, copyRow(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *data) uniqueHolder(relation rowguard.Relation, col, value string) (string, bool) {
	id, ok := d.unique[relation][col][value]
	return id, ok
}

func (d *data) setUnique(relation rowguard.Relation, col, value, id string) {
	byCol, ok := d.unique[relation]
	if !ok {
		byCol = make(map[string]map[string]string)
		d.unique[relation] = byCol
	}
	byVal, ok := byCol[col]
	if !ok {
		byVal = make(map[string]string)
		byCol[col] = byVal
	}
	byVal[value] = id
}

func (d *data) clearUnique(relation rowguard.Relation, col, value string) {
	delete(d.unique[relation][col], value)
}

func (d *data) clone() *data {
	c := newData()
	for rel, byID := range d.rows {
		m := make(map[string]rowguard.Row, len(byID))
		for id, row := range byID {
			m[id] = copyRow(row)
		}
		c.rows[rel] = m
	}
	for rel, byCol := range d.unique {
		cm := make(map[string]map[string]string, len(byCol))
		for col, byVal := range byCol {
			vm := make(map[string]string, len(byVal))
			for v, id := range byVal {
				vm[v] = id
			}
			cm[col] = vm
		}
		c.unique[rel] = cm
	}
	return c
}

func copyRow(row rowguard.Row) rowguard.Row {
	fields := make(map[string]string, len(row.Fields))
	for k, v := range row.Fields {
		fields[k] = v
	}
	row.Fields = fields
	return row
}

// Ensure both handles satisfy the engine's store contract.
var (
	_ rowguard.Store = (*Store)(nil)
	_ rowguard.Store = (*Tx)(nil)
)
