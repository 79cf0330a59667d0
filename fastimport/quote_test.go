package fastimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsQuoting(t *testing.T) {
	assert.False(t, needsQuoting([]byte("plain/path.go")))
	assert.True(t, needsQuoting([]byte(`a b"c`)))
	assert.True(t, needsQuoting([]byte("tab\ttab")))
}

func TestQuotePathRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(`a b"c`),
		[]byte("line\nbreak"),
		[]byte("back\\slash"),
		[]byte{'a', 0x01, 'b'},
	}
	for _, c := range cases {
		quoted := quotePath(c)
		assert.True(t, len(quoted) >= 2)
		assert.Equal(t, byte('"'), quoted[0])
		assert.Equal(t, byte('"'), quoted[len(quoted)-1])
		got, err := dequotePath(quoted)
		assert.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestDequotePathRejectsUnterminated(t *testing.T) {
	_, err := dequotePath([]byte(`"abc`))
	assert.Error(t, err)
}
