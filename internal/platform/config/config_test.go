package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePoints(t *testing.T) {
	assert.NoError(t, validatePoints([]string{"0", "0.5", "1", "3", UnknownVote}))

	// 空表、重复条目、非数值非哨兵条目都不合法
	assert.Error(t, validatePoints(nil))
	assert.Error(t, validatePoints([]string{"1", "1"}))
	assert.Error(t, validatePoints([]string{"1", "coffee"}))
	assert.Error(t, validatePoints([]string{UnknownVote, UnknownVote}))
}
