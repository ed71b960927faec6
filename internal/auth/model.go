package auth

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Identity 是上游身份提供方在登录成功后交付的身份结构。
type Identity struct {
	UID           string `json:"uid" binding:"required"`
	Email         string `json:"email" binding:"required"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL"`
	EmailVerified bool   `json:"emailVerified"`
}

// CachedIdentity 是持久化在本地SQLite中的单槽身份缓存。
// 启动时读取它可以避免界面出现"未登录"的闪烁；显式登出时清空。
type CachedIdentity struct {
	// Slot 恒为1，保证这张表中最多只有一条记录
	Slot          int    `gorm:"primarykey"`
	UID           string `gorm:"type:varchar(128)"`
	Email         string `gorm:"type:varchar(255)"`
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	LastLoginAt   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// ErrDomainNotAllowed 表示登录邮箱不属于配置允许的域名。
// 出现该错误时必须强制登出，绝不能把被拒绝的身份留在本地状态中。
var ErrDomainNotAllowed = errors.New("邮箱域名不在允许范围内")

// ValidateDomain 检查身份邮箱是否非空且以配置的域名结尾。
func ValidateDomain(identity Identity, allowedDomain string) error {
	if identity.Email == "" {
		return ErrDomainNotAllowed
	}
	if !strings.HasSuffix(identity.Email, "@"+allowedDomain) {
		return ErrDomainNotAllowed
	}
	return nil
}

// IsAdmin 判断一个邮箱是否拥有管理能力（开始/重置/公开会话）。
// 这是一个纯函数：对配置的不可变管理员集合做精确字符串匹配。
func IsAdmin(email string, adminEmails []string) bool {
	for _, admin := range adminEmails {
		if admin == email {
			return true
		}
	}
	return false
}
