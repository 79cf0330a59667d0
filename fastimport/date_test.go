package fastimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDateRoundTrip(t *testing.T) {
	d := NewDate(1700000000, "+0200")
	assert.Equal(t, "1700000000 +0200", d.String())

	epoch, err := d.Epoch()
	assert.NoError(t, err)
	assert.EqualValues(t, 1700000000, epoch)

	offset, err := d.Offset()
	assert.NoError(t, err)
	assert.Equal(t, "+0200", offset)
}

func TestDateMalformed(t *testing.T) {
	d := Date{Raw: []byte("not-a-date")}
	_, err := d.Epoch()
	assert.Error(t, err)
	_, err = d.Offset()
	assert.Error(t, err)
}
