package networkio_test

import (
	"os"
	"path/filepath"
	"testing"

	"lintang/trafficspeed/pkg/networkio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeSampleTables(t *testing.T, dir string) {
	writeFile(t, dir, networkio.NodesFile, `{"1":[42.90,-78.80],"2":[42.905,-78.80],"3":[42.91,-78.80],"4":[42.91,-78.79]}`)
	writeFile(t, dir, networkio.SegmentsFile, `{"10":[1,2,3],"11":[3,4],"12":[4,99]}`)
	writeFile(t, dir, networkio.RoutesFile, `{"100":{"members":[1,10,11],"tags":{"ref":"7","name":"Main"}}}`)
	writeFile(t, dir, networkio.SegmentClassesFile, `{"10":"primary","11":"motorway","12":"residential"}`)
	writeFile(t, dir, networkio.SegmentSpeedLimitsFile, `{"10":33,"11":64}`)
}

func TestLoadNetworkFromJSON(t *testing.T) {
	dir := t.TempDir()
	writeSampleTables(t, dir)

	rn, err := networkio.LoadNetwork(dir, 5)
	require.NoError(t, err)

	t.Run("segments and adjacency", func(t *testing.T) {
		assert.Equal(t, []int64{10, 11, 12}, rn.SegmentIDs())
		assert.Equal(t, []int64{11}, rn.Neighbors(10))
		assert.Equal(t, []int64{10, 12}, rn.Neighbors(11))
	})

	t.Run("unresolvable node reference dropped", func(t *testing.T) {
		s, ok := rn.Segment(12)
		require.True(t, ok)
		assert.Equal(t, []int64{4}, s.NodeIDs)
	})

	t.Run("class speed limits recomputed and rounded", func(t *testing.T) {
		assert.Equal(t, 35.0, rn.Classes().SpeedLimit(10))
		assert.Equal(t, 65.0, rn.Classes().SpeedLimit(11))
		assert.Equal(t, 0.0, rn.Classes().SpeedLimit(12))
	})

	t.Run("routes keep tags", func(t *testing.T) {
		r, ok := rn.Route(100)
		require.True(t, ok)
		assert.Equal(t, "7", r.Ref())
	})
}

func TestContainerFile(t *testing.T) {
	dir := t.TempDir()
	writeSampleTables(t, dir)
	tables, err := networkio.LoadTables(dir, 5)
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, networkio.SaveToFile(filepath.Join(out, networkio.ContainerFile), tables))

	rn, err := networkio.LoadNetwork(out, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, rn.NumSegments())
	assert.Equal(t, []int64{10, 12}, rn.Neighbors(11))
}
