package storage

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dgraph-io/badger/v4"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/trace"
	"github.com/rs/zerolog/log"
)

var eventsPrefix = []byte("events:")

// BadgerStore keeps scheduling trace events in badger, keyed by snowflake
// IDs so that key order is record order.
type BadgerStore struct {
	db     *badger.DB
	idNode *snowflake.Node
}

func NewBadgerStore(db *badger.DB, nodeID int64) (*BadgerStore, error) {
	idNode, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{db: db, idNode: idNode}, nil
}

func (s *BadgerStore) GetEventKey(id uint64) []byte {
	return addPrefix(eventsPrefix, uint64ToBytes(id))
}

// Record assigns an ID to ev when it has none and stores it.
func (s *BadgerStore) Record(ev trace.Event) error {
	if ev.ID == 0 {
		ev.ID = uint64(s.idNode.Generate().Int64())
	}

	data, err := trace.Encode(&ev)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.GetEventKey(ev.ID), data)
	})
}

func (s *BadgerStore) Get(id uint64) (*trace.Event, error) {
	var ev *trace.Event

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.GetEventKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrEventNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			ev, err = trace.Decode(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return ev, nil
}

// Events returns up to limit events recorded after lastID, oldest first.
func (s *BadgerStore) Events(limit int, lastID uint64) ([]*trace.Event, error) {
	events := []*trace.Event{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = eventsPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		start := eventsPrefix
		if lastID != 0 {
			start = s.GetEventKey(lastID + 1)
		}

		for it.Seek(start); it.ValidForPrefix(eventsPrefix); it.Next() {
			if len(events) >= limit {
				break
			}

			err := it.Item().Value(func(val []byte) error {
				ev, err := trace.Decode(val)
				if err != nil {
					return err
				}
				events = append(events, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Latest returns up to limit most recent events, newest first.
func (s *BadgerStore) Latest(limit int) ([]*trace.Event, error) {
	events := []*trace.Event{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = eventsPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(addPrefix(eventsPrefix, uint64ToBytes(^uint64(0)))); it.ValidForPrefix(eventsPrefix); it.Next() {
			if len(events) >= limit {
				break
			}

			err := it.Item().Value(func(val []byte) error {
				ev, err := trace.Decode(val)
				if err != nil {
					return err
				}
				events = append(events, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Purge drops every stored event.
func (s *BadgerStore) Purge() error {
	return s.db.DropPrefix(eventsPrefix)
}

func (s *BadgerStore) RunValueLogGC(ctx context.Context, interval time.Duration, discardRatio float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Msg("Started running value GC")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Debug().Msg("Running value GC")
		again:
			err := s.db.RunValueLogGC(discardRatio)
			if err == nil {
				goto again
			}
		}
	}
}
