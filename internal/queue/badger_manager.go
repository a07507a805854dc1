package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// Queue names used by the pipeline
const (
	ScanQueue     = "scan"
	EvaluateQueue = "evaluate"
)

// queueMessage is the internal wrapper stored in Badger
type queueMessage struct {
	ID           string             `json:"id"`
	Body         models.TaskMessage `json:"body"`
	EnqueuedAt   time.Time          `json:"enqueued_at"`
	VisibleAt    time.Time          `json:"visible_at"`
	ReceiveCount int                `json:"receive_count"`
}

// BadgerManager is an at-least-once durable queue on Badger. Message data
// lives at queue:{name}:msg:{id}; a zero-padded timestamp index at
// queue:{name}:index:{visibleAt}:{id} keeps iteration in visibility order,
// so the first future timestamp ends the scan.
type BadgerManager struct {
	db                *badgerdb.DB
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

// NewBadgerManager creates a Badger-backed queue manager shared by all
// named queues.
func NewBadgerManager(db *badgerdb.DB, visibilityTimeout time.Duration, maxReceive int, logger arbor.ILogger) (*BadgerManager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &BadgerManager{
		db:                db,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
		logger:            logger,
	}, nil
}

func (m *BadgerManager) Enqueue(ctx context.Context, queue string, msg models.TaskMessage) error {
	return m.EnqueueWithDelay(ctx, queue, msg, 0)
}

func (m *BadgerManager) EnqueueWithDelay(ctx context.Context, queue string, msg models.TaskMessage, delay time.Duration) error {
	qMsg := queueMessage{
		ID:         uuid.New().String(),
		Body:       msg,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now().Add(delay),
	}

	data, err := json.Marshal(qMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(msgKey(queue, qMsg.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(queue, qMsg.VisibleAt, qMsg.ID), []byte{})
	})
}

// Receive claims the next visible message: its receive count is bumped and
// it goes invisible for the visibility timeout. Messages already received
// maxReceive times are moved to the dead-letter key space instead of being
// claimed again.
func (m *BadgerManager) Receive(ctx context.Context, queue string) (*interfaces.ReceivedMessage, error) {
	var claimed queueMessage

	err := m.db.Update(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := indexPrefix(queue)
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, err := parseIndexKey(queue, key)
			if err != nil {
				continue
			}
			// Index keys sort by timestamp: the first future entry ends the scan
			if ts.After(now) {
				break
			}

			var qMsg queueMessage
			item, err := txn.Get(msgKey(queue, id))
			if err != nil {
				if err == badgerdb.ErrKeyNotFound {
					// Orphaned index entry
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &qMsg)
			}); err != nil {
				return err
			}

			if qMsg.ReceiveCount >= m.maxReceive {
				if err := m.deadLetter(txn, queue, key, &qMsg); err != nil {
					return err
				}
				continue
			}

			qMsg.ReceiveCount++
			qMsg.VisibleAt = now.Add(m.visibilityTimeout)

			data, err := json.Marshal(qMsg)
			if err != nil {
				return err
			}
			if err := txn.Set(msgKey(queue, qMsg.ID), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Set(indexKey(queue, qMsg.VisibleAt, qMsg.ID), []byte{}); err != nil {
				return err
			}

			claimed = qMsg
			return nil
		}

		return models.ErrNoMessage
	})
	if err != nil {
		return nil, err
	}

	return &interfaces.ReceivedMessage{
		ID:           claimed.ID,
		Task:         claimed.Body,
		ReceiveCount: claimed.ReceiveCount,
	}, nil
}

// Delete acknowledges a processed message
func (m *BadgerManager) Delete(ctx context.Context, queue string, messageID string) error {
	return m.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(msgKey(queue, messageID))
		if err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return nil // Already deleted
			}
			return err
		}

		var qMsg queueMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &qMsg)
		}); err != nil {
			return err
		}

		if err := txn.Delete(indexKey(queue, qMsg.VisibleAt, messageID)); err != nil && err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.Delete(msgKey(queue, messageID))
	})
}

// Release returns a claimed message to the queue, visible again after delay.
// Used for retry backoff after a transient failure.
func (m *BadgerManager) Release(ctx context.Context, queue string, messageID string, delay time.Duration) error {
	return m.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(msgKey(queue, messageID))
		if err != nil {
			return err
		}

		var qMsg queueMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &qMsg)
		}); err != nil {
			return err
		}

		oldVisibleAt := qMsg.VisibleAt
		qMsg.VisibleAt = time.Now().Add(delay)

		data, err := json.Marshal(qMsg)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey(queue, messageID), data); err != nil {
			return err
		}
		if err := txn.Delete(indexKey(queue, oldVisibleAt, messageID)); err != nil && err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.Set(indexKey(queue, qMsg.VisibleAt, messageID), []byte{})
	})
}

// Depth counts messages in the queue, visible or claimed
func (m *BadgerManager) Depth(ctx context.Context, queue string) (int, error) {
	count := 0
	err := m.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", queue))
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// deadLetter preserves an exhausted message under the dead prefix for
// inspection and removes it from delivery rotation.
func (m *BadgerManager) deadLetter(txn *badgerdb.Txn, queue string, idxKey []byte, qMsg *queueMessage) error {
	data, err := json.Marshal(qMsg)
	if err != nil {
		return err
	}
	deadKey := []byte(fmt.Sprintf("queue:%s:dead:%s", queue, qMsg.ID))
	if err := txn.Set(deadKey, data); err != nil {
		return err
	}
	if err := txn.Delete(idxKey); err != nil {
		return err
	}
	if err := txn.Delete(msgKey(queue, qMsg.ID)); err != nil {
		return err
	}

	m.logger.Warn().
		Str("queue", queue).
		Str("message_id", qMsg.ID).
		Int("receive_count", qMsg.ReceiveCount).
		Msg("Message exhausted max receives, moved to dead letter")
	return nil
}

func msgKey(queue, id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", queue, id))
}

func indexPrefix(queue string) []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", queue))
}

// indexKey zero-pads the timestamp to 20 digits so lexicographic key order
// matches numeric time order.
func indexKey(queue string, visibleAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", queue, visibleAt.UnixNano(), id))
}

func parseIndexKey(queue string, key []byte) (time.Time, string, error) {
	prefix := indexPrefix(queue)
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid index key")
	}

	suffix := string(key[len(prefix):])
	if len(suffix) < 21 {
		return time.Time{}, "", fmt.Errorf("invalid index key suffix")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
