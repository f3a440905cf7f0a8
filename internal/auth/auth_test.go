package auth

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadClear(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewStore(fsys, "/home/u/.finsight")

	key, err := s.LoadAPIKey()
	require.NoError(t, err)
	require.Empty(t, key)

	require.Error(t, s.SaveAPIKey("   "))
	require.NoError(t, s.SaveAPIKey(" sk-test \n"))

	key, err = s.LoadAPIKey()
	require.NoError(t, err)
	require.Equal(t, "sk-test", key)

	info, err := fsys.Stat("/home/u/.finsight/auth.json")
	require.NoError(t, err)
	require.Equal(t, "-rw-------", info.Mode().Perm().String())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	key, err = s.LoadAPIKey()
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestLoadLegacyKey(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewStore(fsys, "/cfg")
	require.NoError(t, afero.WriteFile(fsys, s.Path(), []byte(`{"OPENAI_API_KEY":"sk-legacy"}`), 0o600))

	key, err := s.LoadAPIKey()
	require.NoError(t, err)
	require.Equal(t, "sk-legacy", key)
}

func TestLoadCorruptFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewStore(fsys, "/cfg")
	require.NoError(t, afero.WriteFile(fsys, s.Path(), []byte(`{not json`), 0o600))

	_, err := s.LoadAPIKey()
	require.Error(t, err)
}
