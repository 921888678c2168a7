package graph

import (
	"context"
	"errors"
	"fmt"
)

// Update runs fn inside a write transaction. The transaction is committed if
// fn succeeds and rolled back otherwise, including on panic.
func Update(ctx context.Context, store Store, fn func(tx Tx) error) error {
	return run(ctx, store, WriteMode, fn)
}

// View runs fn inside a read transaction, which is always rolled back.
func View(ctx context.Context, store Store, fn func(tx Tx) error) error {
	return run(ctx, store, ReadMode, fn)
}

func run(ctx context.Context, store Store, mode Mode, fn func(tx Tx) error) (err error) {
	tx, err := store.Begin(ctx, mode)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, ErrTxClosed) {
			log.LogError(rerr, "rollback failed")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if mode == ReadMode {
		return nil
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	committed = true
	return nil
}

// Neighbours returns the nodes at the other end of the matching relationships.
func Neighbours(ctx context.Context, tx Tx, nodeID string, dir Direction, types ...string) ([]*Node, error) {
	rels, err := tx.Relationships(ctx, nodeID, dir, types...)
	if err != nil {
		return nil, err
	}
	result := make([]*Node, 0, len(rels))
	seen := map[string]bool{}
	for _, r := range rels {
		id := r.Other(nodeID)
		if seen[id] {
			continue
		}
		seen[id] = true
		n, err := tx.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

// Single returns the node at the other end of the first matching relationship
// or ErrNotFound.
func Single(ctx context.Context, tx Tx, nodeID string, dir Direction, types ...string) (*Node, *Relationship, error) {
	rels, err := tx.Relationships(ctx, nodeID, dir, types...)
	if err != nil {
		return nil, nil, err
	}
	if len(rels) == 0 {
		return nil, nil, ErrNotFound
	}
	n, err := tx.GetNode(ctx, rels[0].Other(nodeID))
	if err != nil {
		return nil, nil, err
	}
	return n, rels[0], nil
}

// DetachDelete removes all relationships of a node and the node itself.
func DetachDelete(ctx context.Context, tx Tx, nodeID string) error {
	if err := DeleteRelationships(ctx, tx, nodeID, Both); err != nil {
		return err
	}
	return tx.DeleteNode(ctx, nodeID)
}

// DeleteRelationships removes every matching relationship of a node.
func DeleteRelationships(ctx context.Context, tx Tx, nodeID string, dir Direction, types ...string) error {
	rels, err := tx.Relationships(ctx, nodeID, dir, types...)
	if err != nil {
		return err
	}
	for _, r := range rels {
		if err := tx.DeleteRelationship(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// FilterRelationships keeps relationships whose property key equals value.
func FilterRelationships(rels []*Relationship, key, value string) []*Relationship {
	var result []*Relationship
	for _, r := range rels {
		if r.String(key) == value {
			result = append(result, r)
		}
	}
	return result
}
