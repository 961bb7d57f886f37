package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapExtToFormat(t *testing.T) {
	assert.Equal(t, PDF, MapExtToFormat(".PDF"))
	assert.Equal(t, IMAGE, MapExtToFormat("jpeg"))
	assert.Equal(t, IMAGE, MapExtToFormat(".webp"))
	assert.Equal(t, "", MapExtToFormat(".txt"))
	assert.True(t, IsHEICExt(".HEIC"))
	assert.False(t, IsHEICExt("png"))
}

func TestCanonicalSplit(t *testing.T) {
	s, ok := CanonicalSplit(" Val ")
	assert.True(t, ok)
	assert.Equal(t, SplitValidation, s)

	_, ok = CanonicalSplit("holdout")
	assert.False(t, ok)
}
