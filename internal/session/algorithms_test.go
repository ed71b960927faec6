package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageExcludesNonNumericVotes(t *testing.T) {
	// "?"既不计入分子也不计入分母
	votes := map[string]string{
		"a@example.com": "3",
		"b@example.com": "5",
		"c@example.com": "?",
	}
	assert.Equal(t, 4.0, Average(votes))
}

func TestAverageEmptyVotes(t *testing.T) {
	assert.Equal(t, 0.0, Average(map[string]string{}))
}

func TestAverageOnlyUnknownVotes(t *testing.T) {
	votes := map[string]string{
		"a@example.com": "?",
		"b@example.com": "?",
	}
	assert.Equal(t, 0.0, Average(votes))
}

func TestAverageRoundsToOneDecimal(t *testing.T) {
	votes := map[string]string{
		"a@example.com": "1",
		"b@example.com": "2",
		"c@example.com": "2",
	}
	// 5/3 = 1.666... -> 1.7
	assert.Equal(t, 1.7, Average(votes))
}

func TestAverageIgnoresUnparseableEntries(t *testing.T) {
	votes := map[string]string{
		"a@example.com": "8",
		"b@example.com": "coffee",
	}
	assert.Equal(t, 8.0, Average(votes))
}
