package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkCodeRow maps the link_codes table.
type LinkCodeRow struct {
	Code           string    `gorm:"primaryKey"`
	SupabaseUserID string    `gorm:"not null;index"`
	ExpiresAt      time.Time `gorm:"not null"`
	UsedAt         *time.Time
	CreatedAt      time.Time
}

func (LinkCodeRow) TableName() string { return "link_codes" }

// UserLinkRow maps the user_links table. One row per external identity.
type UserLinkRow struct {
	TelegramUserID string `gorm:"primaryKey"`
	SupabaseUserID string `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (UserLinkRow) TableName() string { return "user_links" }

// SQLLinkStore keeps link codes and identity links in a relational database
// through gorm (Postgres in production, sqlite in tests).
type SQLLinkStore struct {
	db *gorm.DB
}

func NewSQLLinkStore(db *gorm.DB) *SQLLinkStore {
	return &SQLLinkStore{db: db}
}

// Migrate creates or updates the link_codes and user_links tables.
func (s *SQLLinkStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&LinkCodeRow{}, &UserLinkRow{}); err != nil {
		return fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}
	return nil
}

func (s *SQLLinkStore) SaveLinkCode(ctx context.Context, record *LinkCodeRecord) error {
	if record == nil || record.Code == "" || record.BackendUserID == "" {
		return errors.New("link code record is incomplete")
	}

	row := LinkCodeRow{
		Code:           record.Code,
		SupabaseUserID: record.BackendUserID,
		ExpiresAt:      record.ExpiresAt.UTC(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrLinkStoreBackend, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLinkCodeExists
	}
	return nil
}

func (s *SQLLinkStore) GetLinkCode(ctx context.Context, code string) (*LinkCodeRecord, error) {
	var row LinkCodeRow
	if err := s.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}
	return row.record(), nil
}

// RedeemLinkCode runs the check, the identity-link upsert and the conditional
// mark-used in one transaction. The UPDATE only matches while used_at is still
// NULL, so of two concurrent redeemers exactly one sees a row affected.
func (s *SQLLinkStore) RedeemLinkCode(
	ctx context.Context,
	code string,
	externalUserID string,
	now time.Time,
) (string, error) {
	var backendUserID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row LinkCodeRow
		if err := tx.Where("code = ?", code).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkCodeNotFound
			}
			return err
		}
		if err := row.record().Redeemable(now); err != nil {
			return err
		}

		res := tx.Model(&LinkCodeRow{}).
			Where("code = ? AND used_at IS NULL", code).
			Update("used_at", now.UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrLinkCodeUsed
		}

		link := UserLinkRow{
			TelegramUserID: externalUserID,
			SupabaseUserID: row.SupabaseUserID,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"supabase_user_id", "updated_at"}),
		}).Create(&link).Error
		if err != nil {
			return err
		}

		backendUserID = row.SupabaseUserID
		return nil
	})
	if err != nil {
		if IsRejection(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}

	return backendUserID, nil
}

func (s *SQLLinkStore) LookupIdentityLink(ctx context.Context, externalUserID string) (string, error) {
	var row UserLinkRow
	err := s.db.WithContext(ctx).
		Select("supabase_user_id").
		Where("telegram_user_id = ?", externalUserID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrIdentityLinkMissing
		}
		return "", fmt.Errorf("%w: %v", ErrLinkStoreBackend, err)
	}
	if row.SupabaseUserID == "" {
		return "", ErrIdentityLinkMissing
	}
	return row.SupabaseUserID, nil
}

func (r *LinkCodeRow) record() *LinkCodeRecord {
	return &LinkCodeRecord{
		Code:          r.Code,
		BackendUserID: r.SupabaseUserID,
		ExpiresAt:     r.ExpiresAt,
		UsedAt:        r.UsedAt,
	}
}
