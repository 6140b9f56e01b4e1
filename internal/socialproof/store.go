package socialproof

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SocialIdentity 用户绑定的外部社交身份
type SocialIdentity struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     int64  `gorm:"index:idx_user_platform,unique;not null"`
	Platform   string `gorm:"index:idx_user_platform,unique;size:32;not null"` // twitter / instagram / tiktok
	Handle     string `gorm:"size:128"`
	Verified   bool   `gorm:"not null;default:false"`
	VerifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GormStore 提供社交身份查询，供策略层判断 claimable transfer 是否放行
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 建表
func (s *GormStore) Migrate() error {
	return errors.Wrap(s.db.AutoMigrate(&SocialIdentity{}), "failed to migrate social identities")
}

// HasVerifiedIdentity 是否存在至少一条已验证的社交身份
func (s *GormStore) HasVerifiedIdentity(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&SocialIdentity{}).
		Where("user_id = ? AND verified = ?", userID, true).
		Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "failed to query social identities for user %d", userID)
	}
	return count > 0, nil
}

// Link 新增或更新用户在某平台的身份
func (s *GormStore) Link(ctx context.Context, userID int64, platform, handle string, verified bool) error {
	var existing SocialIdentity
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&existing).Error

	var verifiedAt *time.Time
	if verified {
		now := time.Now().UTC()
		verifiedAt = &now
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		identity := SocialIdentity{
			UserID:     userID,
			Platform:   platform,
			Handle:     handle,
			Verified:   verified,
			VerifiedAt: verifiedAt,
		}
		return errors.Wrap(s.db.WithContext(ctx).Create(&identity).Error, "failed to create social identity")
	case err != nil:
		return errors.Wrapf(err, "failed to load social identity for user %d", userID)
	}

	update := map[string]any{
		"handle":      handle,
		"verified":    verified,
		"verified_at": verifiedAt,
	}
	return errors.Wrapf(s.db.WithContext(ctx).Model(&existing).Updates(update).Error,
		"failed to update social identity %d", existing.ID)
}

// Unlink 删除用户在某平台的身份
func (s *GormStore) Unlink(ctx context.Context, userID int64, platform string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Delete(&SocialIdentity{})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to delete social identity for user %d", userID)
	}
	if result.RowsAffected == 0 {
		return errors.Errorf("social identity %d/%s not found", userID, platform)
	}
	return nil
}
