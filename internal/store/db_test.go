package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseIsNilSafe(t *testing.T) {
	var d *DB
	assert.NoError(t, d.Close())
	assert.NoError(t, (&DB{}).Close())
}
