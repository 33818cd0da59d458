package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinnerOf(t *testing.T) {
	assert.Equal(t, int64(1), WinnerOf(1, 2, 21, 18))
	assert.Equal(t, int64(2), WinnerOf(1, 2, 11, 15))
}
