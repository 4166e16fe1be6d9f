// Package journal is an optional embedded-KV diagnostic journal of the
// last N DecodedMessages and entity-state snapshots per network, for
// post-mortem inspection after a crash. It adapts the teacher's
// pkg/store/metadata/badger key-namespace pattern to a ring-buffer write
// log instead of filesystem metadata (spec_full §5).
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/coachlink/gateway/internal/entity"
	"github.com/coachlink/gateway/internal/protocol"
)

// Key namespace, mirroring the teacher's prefix-per-data-type convention:
//
//	"m:" + network_id + ":" + seq (zero-padded)  -> DecodedMessage (JSON)
//	"e:" + entity_id                             -> entity.Snapshot (JSON)
//	"seq:" + network_id                          -> next sequence number (binary)
const (
	prefixMessage  = "m:"
	prefixEntity   = "e:"
	prefixSequence = "seq:"
)

// Journal is a badger-backed ring log: for each network it keeps only the
// most recent MaxPerNode decoded messages, and for entities it keeps the
// single latest snapshot per entity ID.
type Journal struct {
	db         *badger.DB
	maxPerNode int
}

// Open opens (or creates) a badger database at path. MaxPerNode bounds how
// many messages are retained per network before the oldest is evicted.
func Open(path string, maxPerNode int) (*Journal, error) {
	if maxPerNode <= 0 {
		maxPerNode = 10000
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open diagnostic journal at %q: %w", path, err)
	}

	return &Journal{db: db, maxPerNode: maxPerNode}, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordMessage appends msg to its network's ring log, evicting the
// oldest entry once the network exceeds maxPerNode.
func (j *Journal) RecordMessage(msg *protocol.DecodedMessage) error {
	return j.db.Update(func(txn *badger.Txn) error {
		seq, err := j.nextSeq(txn, msg.SourceNetworkID)
		if err != nil {
			return err
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode journal message: %w", err)
		}

		if err := txn.Set(keyMessage(msg.SourceNetworkID, seq), data); err != nil {
			return err
		}

		return j.evictOldest(txn, msg.SourceNetworkID, seq)
	})
}

// RecordEntitySnapshot records entity snapshot, overwriting any prior
// snapshot for the same entity ID (only the latest is kept).
func (j *Journal) RecordEntitySnapshot(snap entity.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode journal entity snapshot: %w", err)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixEntity+snap.EntityID), data)
	})
}

// MessagesForNetwork returns every journaled message for networkID in
// insertion order, for post-crash inspection.
func (j *Journal) MessagesForNetwork(networkID string) ([]*protocol.DecodedMessage, error) {
	var out []*protocol.DecodedMessage

	err := j.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixMessage + networkID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var msg protocol.DecodedMessage
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				out = append(out, &msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return out, err
}

func (j *Journal) nextSeq(txn *badger.Txn, networkID string) (uint64, error) {
	key := []byte(prefixSequence + networkID)

	item, err := txn.Get(key)
	var seq uint64
	switch {
	case err == nil:
		if err := item.Value(func(val []byte) error {
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	case err == badger.ErrKeyNotFound:
		seq = 0
	default:
		return 0, err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq+1)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return seq, nil
}

// evictOldest removes the oldest message for networkID once the retained
// count exceeds maxPerNode.
func (j *Journal) evictOldest(txn *badger.Txn, networkID string, latestSeq uint64) error {
	if latestSeq < uint64(j.maxPerNode) {
		return nil
	}
	oldest := latestSeq - uint64(j.maxPerNode)
	return txn.Delete(keyMessage(networkID, oldest))
}

func keyMessage(networkID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixMessage, networkID, seq))
}

// RecordedAt is a convenience helper converting a DecodedMessage's
// float-seconds timestamp to a time.Time, matching the convention used by
// internal/entity's updater.
func RecordedAt(msg *protocol.DecodedMessage) time.Time {
	return time.Unix(0, int64(msg.Timestamp*float64(time.Second)))
}
