package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		domain   string
		rejected bool
	}{
		{"允许的域名", "alice@example.com", "example.com", false},
		{"其他域名", "alice@gmail.com", "example.com", true},
		{"空邮箱", "", "example.com", true},
		{"域名只是后缀不带@", "alice@evilexample.com", "example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(Identity{Email: tt.email}, tt.domain)
			if tt.rejected {
				assert.ErrorIs(t, err, ErrDomainNotAllowed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	admins := []string{"alice@example.com", "bob@example.com"}

	assert.True(t, IsAdmin("alice@example.com", admins))
	assert.False(t, IsAdmin("carol@example.com", admins))
	// 精确字符串匹配，大小写不同不算
	assert.False(t, IsAdmin("Alice@example.com", admins))
	assert.False(t, IsAdmin("alice@example.com", nil))
}
