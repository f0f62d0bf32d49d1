// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package memstore

import (
	"encoding/json"

	"github.com/tidwall/buntdb"

	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// Snapshot dumps the store's current kv and list keyspaces into an embedded
// buntdb database at path, for the --dump-state debug flag. The snapshot
// is a point-in-time copy; it does not stay live against the Store.
func (s *Store) Snapshot(path string) error {
	s.mu.Lock()
	kv := make(map[string][]byte, len(s.kv))
	for k, v := range s.kv {
		kv[k] = append([]byte(nil), v...)
	}
	lists := make(map[string][][]byte, len(s.lists))
	for k, l := range s.lists {
		cp := make([][]byte, len(l))
		copy(cp, l)
		lists[k] = cp
	}
	s.mu.Unlock()

	db, err := buntdb.Open(path)
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeUnknown, "opening dump-state database", err)
	}
	defer db.Close()

	err = db.Update(func(tx *buntdb.Tx) error {
		for k, v := range kv {
			if _, _, err := tx.Set("kv:"+k, string(v), nil); err != nil {
				return err
			}
		}
		for k, l := range lists {
			strs := make([]string, len(l))
			for i, v := range l {
				strs[i] = string(v)
			}
			encoded, err := json.Marshal(strs)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set("list:"+k, string(encoded), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return distschederrors.NewWithCause(distschederrors.ErrorCodeUnknown, "writing dump-state snapshot", err)
	}
	return nil
}

// ReadSnapshot reads back a dump-state database written by Snapshot,
// rendering it as a human-readable key/value listing (debug CLI only).
func ReadSnapshot(path string) (map[string]string, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, distschederrors.NewWithCause(distschederrors.ErrorCodeUnknown, "opening dump-state database", err)
	}
	defer db.Close()

	out := make(map[string]string)
	err = db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			out[key] = value
			return true
		})
	})
	if err != nil {
		return nil, distschederrors.NewWithCause(distschederrors.ErrorCodeUnknown, "reading dump-state database", err)
	}
	return out, nil
}
