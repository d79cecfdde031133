package authority

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirectory(t *testing.T) {
	assert := assert.New(t)

	dir, err := New("")
	require.NoError(t, err)

	t.Run("Known country", func(t *testing.T) {
		list := dir.ForCountry("NG")
		assert.Len(list, 4)
		assert.Equal("ng-police", list[0].ID)
	})

	t.Run("Lower case code", func(t *testing.T) {
		assert.Len(dir.ForCountry("gb"), 3)
	})

	t.Run("Unknown and empty fall back", func(t *testing.T) {
		assert.Equal(dir.ForCountry(DefaultCountry), dir.ForCountry("FR"))
		assert.Equal(dir.ForCountry(DefaultCountry), dir.ForCountry(""))
	})

	t.Run("Find", func(t *testing.T) {
		a, ok := dir.Find("US", "us-fbi")
		assert.True(ok)
		assert.Equal("FBI (Federal Bureau of Investigation)", a.Name)
		assert.Equal(TypeOther, a.Type)

		_, ok = dir.Find("US", "ng-efcc")
		assert.False(ok)
	})
}

func TestParseRequiresDefault(t *testing.T) {
	_, err := Parse([]byte("US:\n  - id: x\n    name: X\n"))
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT:\n  - id: one\n    name: One\n"), 0o644))

	dir, err := New(path)
	require.NoError(t, err)
	require.NoError(t, dir.Watch(path))
	defer dir.Close()

	require.NoError(t, os.WriteFile(path, []byte("DEFAULT:\n  - id: two\n    name: Two\n"), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := dir.Find("", "two")
		return ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchSurvivesReplace(t *testing.T) {
	folder := t.TempDir()
	path := filepath.Join(folder, "authorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT:\n  - id: one\n    name: One\n"), 0o644))

	dir, err := New(path)
	require.NoError(t, err)
	require.NoError(t, dir.Watch(path))
	defer dir.Close()

	for _, id := range []string{"two", "three"} {
		tmp := filepath.Join(folder, ".authorities.yaml.swp")
		require.NoError(t, os.WriteFile(tmp, []byte("DEFAULT:\n  - id: "+id+"\n    name: X\n"), 0o644))
		require.NoError(t, os.Rename(tmp, path))

		assert.Eventually(t, func() bool {
			_, ok := dir.Find("", id)
			return ok
		}, 2*time.Second, 20*time.Millisecond, id)
	}
}
