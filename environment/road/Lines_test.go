package road

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoadLines(t *testing.T) {
	in := "12961.722656,6660.329102\t13061.722656,6660.329102\n" +
		"\n" +
		"12961.722656,6760.329102\t12961.722656,6860.329102\r\n"

	lines, err := ParseRoadLines(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.InDelta(t, 0, lines[0].A.X, 1e-9)
	assert.InDelta(t, 0, lines[0].A.Y, 1e-9)
	assert.InDelta(t, 1, lines[0].B.X, 1e-9)
	assert.InDelta(t, 0, lines[0].B.Y, 1e-9)

	assert.InDelta(t, 1, lines[1].A.Y, 1e-9)
	assert.InDelta(t, 2, lines[1].B.Y, 1e-9)
	assert.Equal(t, 0.0, lines[1].B.Z)
}

func TestParseRewardLines(t *testing.T) {
	in := "0\t0\t10\t0\n-5.5\t2\t-5.5\t12\n"

	lines, err := ParseRewardLines(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, 10.0, lines[0].B.X)
	assert.Equal(t, -5.5, lines[1].A.X)
	assert.Equal(t, 12.0, lines[1].B.Y)
}

func TestParseMalformed(t *testing.T) {
	_, err := ParseRewardLines(strings.NewReader("0\t0\t10\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = ParseRoadLines(strings.NewReader("1,2\t3,4\n1,x\t3,4\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseRoadLines(strings.NewReader("1,2,3\t3,4\n"))
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	road := filepath.Join(dir, "road_lines.txt")
	reward := filepath.Join(dir, "reward_points.txt")
	require.NoError(t, os.WriteFile(road,
		[]byte("12961.722656,6660.329102\t12961.722656,6760.329102\n"), 0o644))
	require.NoError(t, os.WriteFile(reward, []byte("0\t0\t0\t1\n"), 0o644))

	roadLines, err := LoadRoadLines(road)
	require.NoError(t, err)
	assert.Len(t, roadLines, 1)

	rewardLines, err := LoadRewardLines(reward)
	require.NoError(t, err)
	assert.Len(t, rewardLines, 1)

	_, err = LoadRoadLines(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
