package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDValidate(t *testing.T) {
	tests := []struct {
		id    ID
		valid bool
	}{
		{"pel/00000001", true},
		{"cert", true},
		{"", false},
		{"/abs", false},
		{"a/../b", false},
		{"a//b", false},
		{"./a", false},
	}
	for _, tt := range tests {
		err := tt.id.Validate()
		if tt.valid {
			assert.NoError(t, err, tt.id)
		} else {
			assert.ErrorIs(t, err, ErrInvalidID, tt.id)
		}
	}
}

func TestNewID(t *testing.T) {
	assert.Equal(t, ID("lid/perm/00000001"), NewID("lid", "perm", "00000001"))
}
