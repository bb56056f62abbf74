package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	linkCodeRecordVersionV1 = 1

	// Used codes are kept for this long after expiry so a replay reports
	// "already used" instead of "not found".
	defaultUsedCodeRetention = 24 * time.Hour
)

// RedisLinkStore keeps link codes and identity links in Redis.
//
// Key layout:
//
//	<prefix>:code:<code>   binary LinkCodeRecord, TTL = expiry + retention
//	<prefix>:link:<extID>  backend user id, no TTL
type RedisLinkStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewRedisLinkStore(redisClient redis.UniversalClient, prefix string, retention time.Duration) *RedisLinkStore {
	if prefix == "" {
		prefix = "tgl"
	}
	if retention <= 0 {
		retention = defaultUsedCodeRetention
	}
	return &RedisLinkStore{
		redis:     redisClient,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisLinkStore) codeKey(code string) string {
	return s.prefix + ":code:" + code
}

func (s *RedisLinkStore) linkKey(externalUserID string) string {
	return s.prefix + ":link:" + externalUserID
}

// SaveLinkCode stores a fresh, unused code. An existing code is never
// overwritten.
func (s *RedisLinkStore) SaveLinkCode(ctx context.Context, record *LinkCodeRecord) error {
	if record == nil || record.Code == "" || record.BackendUserID == "" {
		return errors.New("link code record is incomplete")
	}

	encoded, err := encodeLinkCodeRecord(record)
	if err != nil {
		return err
	}

	ttl := time.Until(record.ExpiresAt) + s.retention
	if ttl <= 0 {
		return ErrLinkCodeExpired
	}

	ok, err := s.redis.SetNX(ctx, s.codeKey(record.Code), encoded, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}
	if !ok {
		return ErrLinkCodeExists
	}
	return nil
}

// GetLinkCode returns the stored record for code.
func (s *RedisLinkStore) GetLinkCode(ctx context.Context, code string) (*LinkCodeRecord, error) {
	data, err := s.redis.Get(ctx, s.codeKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLinkCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}
	return decodeLinkCodeRecord(code, data)
}

// RedeemLinkCode checks the code, writes the identity link and marks the code
// used in one optimistic transaction on the code key. Concurrent redeemers of
// the same code race on WATCH; the loser re-reads a used record.
func (s *RedisLinkStore) RedeemLinkCode(
	ctx context.Context,
	code string,
	externalUserID string,
	now time.Time,
) (string, error) {
	const maxRetries = 4
	key := s.codeKey(code)

	for i := 0; i < maxRetries; i++ {
		var backendUserID string

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrLinkCodeNotFound
				}
				return err
			}

			record, err := decodeLinkCodeRecord(code, data)
			if err != nil {
				return err
			}
			if err := record.Redeemable(now); err != nil {
				return err
			}

			usedAt := now
			record.UsedAt = &usedAt
			updated, err := encodeLinkCodeRecord(record)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.linkKey(externalUserID), record.BackendUserID, 0)
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			if err != nil {
				return err
			}

			backendUserID = record.BackendUserID
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if IsRejection(err) {
				return "", err
			}
			return "", fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
		}

		return backendUserID, nil
	}

	return "", ErrLinkCodeUsed
}

// LookupIdentityLink returns the backend user linked to externalUserID.
func (s *RedisLinkStore) LookupIdentityLink(ctx context.Context, externalUserID string) (string, error) {
	backendUserID, err := s.redis.Get(ctx, s.linkKey(externalUserID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrIdentityLinkMissing
		}
		return "", fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}
	if backendUserID == "" {
		return "", ErrIdentityLinkMissing
	}
	return backendUserID, nil
}

func encodeLinkCodeRecord(record *LinkCodeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(linkCodeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixNano()); err != nil {
		return nil, err
	}

	var usedAt int64
	if record.UsedAt != nil {
		usedAt = record.UsedAt.UnixNano()
	}
	if err := binary.Write(&buf, binary.BigEndian, usedAt); err != nil {
		return nil, err
	}

	if len(record.BackendUserID) > 65535 {
		return nil, errors.New("link code backend user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.BackendUserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.BackendUserID)

	return buf.Bytes(), nil
}

func decodeLinkCodeRecord(code string, data []byte) (*LinkCodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != linkCodeRecordVersionV1 {
		return nil, errors.New("invalid link code record version")
	}

	var expiresAt, usedAt int64
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &usedAt); err != nil {
		return nil, err
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, err
	}
	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}

	record := &LinkCodeRecord{
		Code:          code,
		BackendUserID: string(userID),
		ExpiresAt:     time.Unix(0, expiresAt),
	}
	if usedAt != 0 {
		t := time.Unix(0, usedAt)
		record.UsedAt = &t
	}
	return record, nil
}
