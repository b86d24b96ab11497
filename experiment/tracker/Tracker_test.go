package tracker

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder remembers the numbers of the epochs it tracks
type recorder struct {
	numbers []int
	saves   int
}

func (r *recorder) Track(e Epoch) error {
	r.numbers = append(r.numbers, e.Number)
	return nil
}

func (r *recorder) Save() error {
	r.saves++
	return nil
}

func TestEvery(t *testing.T) {
	r := &recorder{}
	tr := Every(3, r)
	for i := 1; i <= 10; i++ {
		require.NoError(t, tr.Track(Epoch{Number: i}))
	}
	assert.Equal(t, []int{3, 6, 9}, r.numbers)

	require.NoError(t, tr.Save())
	assert.Equal(t, 1, r.saves)
}

func TestEveryOne(t *testing.T) {
	r := &recorder{}
	assert.Same(t, r, Every(1, r))
	assert.Same(t, r, Every(0, r))
}

func TestExcludeBootstrap(t *testing.T) {
	r := &recorder{}
	tr := ExcludeBootstrap(r)
	require.NoError(t, tr.Track(Epoch{Number: 1, Bootstrap: true}))
	require.NoError(t, tr.Track(Epoch{Number: 2}))
	require.NoError(t, tr.Track(Epoch{Number: 3, Bootstrap: true}))
	require.NoError(t, tr.Track(Epoch{Number: 4}))
	assert.Equal(t, []int{2, 4}, r.numbers)
}

func TestLoadData(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")
	file, err := os.Create(filename)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(file).Encode([]float64{1.5, -2}))
	require.NoError(t, file.Close())

	data, err := LoadData[float64](filename)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, data)

	_, err = LoadData[float64](filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
