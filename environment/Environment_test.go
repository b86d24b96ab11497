package environment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAt(t *testing.T) {
	pix := make([]float64, 2*3*3)
	for i := range pix {
		pix[i] = float64(i)
	}
	f, err := NewFrame(2, 3, 3, pix)
	require.NoError(t, err)

	assert.Equal(t, 0.0, f.At(0, 0, 0))
	assert.Equal(t, 5.0, f.At(0, 1, 2))
	assert.Equal(t, 17.0, f.At(1, 2, 2))
	assert.Equal(t, 18, f.Len())

	_, err = NewFrame(2, 3, 3, pix[1:])
	assert.Error(t, err)
}

func TestTransportErrors(t *testing.T) {
	assert.Nil(t, NewTransportError("reset", nil))

	err := NewTransportError("getCarState", io.EOF)
	assert.True(t, IsTransport(err))
	assert.False(t, IsTimeout(err))
	assert.ErrorIs(t, err, io.EOF)

	err = NewTransportError("simGetImages", os.ErrDeadlineExceeded)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "simGetImages: transport timeout", err.Error())

	wrapped := fmt.Errorf("epoch: %w", err)
	assert.True(t, IsTransport(wrapped))
	assert.False(t, IsTransport(errors.New("other")))
}
