package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/platform/config"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrimeDB 负责初始化auth模块的本地缓存表。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&CachedIdentity{}); err != nil {
		return fmt.Errorf("无法迁移身份缓存表: %w", err)
	}
	fmt.Println("身份缓存表迁移成功。")
	return nil
}

// SignIn 校验上游交付的身份并写入本地单槽缓存。
// 域名校验失败时返回 ErrDomainNotAllowed，且保证本地缓存中不残留被拒绝的身份。
func SignIn(identity Identity) error {
	if err := ValidateDomain(identity, config.Cfg.Auth.AllowedDomain); err != nil {
		// 被拒绝的身份绝不能留在本地状态里，相当于强制登出
		if clearErr := ClearCachedIdentity(); clearErr != nil {
			fmt.Printf("登录被拒后清理本地缓存失败: %v\n", clearErr)
		}
		return err
	}

	cached := CachedIdentity{
		Slot:          1,
		UID:           identity.UID,
		Email:         identity.Email,
		DisplayName:   identity.DisplayName,
		PhotoURL:      identity.PhotoURL,
		EmailVerified: identity.EmailVerified,
		LastLoginAt:   time.Now(),
	}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		UpdateAll: true,
	}).Create(&cached).Error
	if err != nil {
		return fmt.Errorf("无法写入本地身份缓存: %w", err)
	}
	return nil
}

// LoadCachedIdentity 在启动时读取上次登录的身份。
// 缓存为空时返回 (nil, nil)，这不是错误。
func LoadCachedIdentity() (*Identity, error) {
	var cached CachedIdentity
	err := database.DB.Where("slot = ?", 1).First(&cached).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("无法读取本地身份缓存: %w", err)
	}
	return &Identity{
		UID:           cached.UID,
		Email:         cached.Email,
		DisplayName:   cached.DisplayName,
		PhotoURL:      cached.PhotoURL,
		EmailVerified: cached.EmailVerified,
	}, nil
}

// ClearCachedIdentity 在显式登出时清空单槽缓存。
func ClearCachedIdentity() error {
	return database.DB.Unscoped().Where("slot = ?", 1).Delete(&CachedIdentity{}).Error
}
