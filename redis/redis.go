package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"crosschainctl/types"
)

const lastReportKey = "verify:last"

var statusSets = map[string]string{
	types.SubmissionSubmitted: "submissions:submitted",
	types.SubmissionConfirmed: "submissions:confirmed",
	types.SubmissionReverted:  "submissions:reverted",
}

// Store keeps submissions and the last verification report.
type Store struct {
	pool *redis.Pool
	log  log.Logger
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(host string, port int, logger log.Logger) *Store {
	addr := fmt.Sprintf("%s:%d", host, port)
	return NewWithPool(&redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 240 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
	}, logger)
}

func NewWithPool(pool *redis.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, log: logger}
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

func submissionKey(status, id string) string {
	return fmt.Sprintf("submission:%s:%s", status, id)
}

func statusSet(status string) (string, error) {
	set, ok := statusSets[status]
	if !ok {
		return "", fmt.Errorf("unknown submission status %q", status)
	}
	return set, nil
}

func checkSubmission(sub *types.Submission) error {
	if sub == nil {
		return errors.New("null object to store")
	}
	if sub.Status == "" {
		return errors.New("submission cannot have empty status")
	}
	return nil
}

// note that a submission lives in exactly one status set
func (s *Store) UpsertSubmission(sub *types.Submission) error {
	if err := checkSubmission(sub); err != nil {
		return err
	}
	set, err := statusSet(sub.Status)
	if err != nil {
		return err
	}

	conn := s.pool.Get()
	defer conn.Close()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	recordKey := submissionKey(sub.Status, sub.ID)

	subJSON, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("cannot marshal submission to JSON: %w", err)
	}

	if _, err = conn.Do("SET", recordKey, subJSON); err != nil {
		s.log.Error("Redis SET failed", "key", recordKey, "err", err)
		return err
	}

	// also add the key to the corresponding SET
	if _, err = conn.Do("SADD", set, recordKey); err != nil {
		s.log.Error("Redis SADD failed", "key", set, "err", err)
		return err
	}

	return nil
}

// ChangeSubmissionStatus moves sub from prevStatus to sub.Status.
func (s *Store) ChangeSubmissionStatus(sub *types.Submission, prevStatus string) error {
	if err := checkSubmission(sub); err != nil {
		return err
	}
	if sub.ID == "" {
		return errors.New("submission without id cannot change status")
	}
	prevSet, err := statusSet(prevStatus)
	if err != nil {
		return err
	}
	set, err := statusSet(sub.Status)
	if err != nil {
		return err
	}

	conn := s.pool.Get()
	defer conn.Close()

	prevRecordKey := submissionKey(prevStatus, sub.ID)
	recordKey := submissionKey(sub.Status, sub.ID)

	subJSON, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("cannot marshal submission to JSON: %w", err)
	}

	if _, err = conn.Do("SREM", prevSet, prevRecordKey); err != nil {
		s.log.Error("Redis SREM failed", "key", prevSet, "err", err)
		return err
	}

	if _, err = conn.Do("DEL", prevRecordKey); err != nil {
		s.log.Error("Redis DEL failed", "key", prevRecordKey, "err", err)
		return err
	}

	if _, err = conn.Do("SET", recordKey, subJSON); err != nil {
		s.log.Error("Redis SET failed", "key", recordKey, "err", err)
		return err
	}

	if _, err = conn.Do("SADD", set, recordKey); err != nil {
		s.log.Error("Redis SADD failed", "key", set, "err", err)
		return err
	}

	return nil
}

func (s *Store) FindAllSubmissionsByStatus(status string) ([]*types.Submission, error) {
	set, err := statusSet(status)
	if err != nil {
		return nil, err
	}

	conn := s.pool.Get()
	defer conn.Close()

	subs := make([]*types.Submission, 0)

	// scan every submission in the status set
	var cursor int64

	for {
		values, err := redis.Values(conn.Do("SSCAN", set, cursor))
		if err != nil {
			return nil, err
		}

		var keys []string
		if _, err = redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				s.log.Warn("Submission set refers to a missing record", "key", key)
				continue
			}
			if err != nil {
				s.log.Error("Redis GET failed", "key", key, "err", err)
				return nil, err
			}

			var sub types.Submission
			if err := json.Unmarshal(raw, &sub); err != nil {
				return nil, fmt.Errorf("cannot decode %s: %w", key, err)
			}
			if sub.Status == status {
				subs = append(subs, &sub)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return subs, nil
}

// SaveReport replaces the last verification report with report, stored as
// JSON.
func (s *Store) SaveReport(report interface{}) error {
	conn := s.pool.Get()
	defer conn.Close()

	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cannot marshal report to JSON: %w", err)
	}

	if _, err = conn.Do("SET", lastReportKey, raw); err != nil {
		s.log.Error("Redis SET failed", "key", lastReportKey, "err", err)
		return err
	}
	return nil
}

// LastReport returns the stored report, or nil if none was saved yet.
func (s *Store) LastReport() (json.RawMessage, error) {
	conn := s.pool.Get()
	defer conn.Close()

	raw, err := redis.Bytes(conn.Do("GET", lastReportKey))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("Redis GET failed", "key", lastReportKey, "err", err)
		return nil, err
	}
	return raw, nil
}
