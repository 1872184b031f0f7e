package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKvStoreReadMissingKeyReturnsNil(t *testing.T) {
	s := newKvStore()
	assert.Nil(t, s.read("absent"))
}

func TestKvStoreWriteThenReadRoundTrips(t *testing.T) {
	s := newKvStore()
	s.write("score", []byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, s.read("score"))
}

func TestKvStoreReadReturnsACopy(t *testing.T) {
	s := newKvStore()
	s.write("score", []byte{1, 2, 3})
	got := s.read("score")
	got[0] = 0xFF
	assert.Equal(t, []byte{1, 2, 3}, s.read("score"))
}
