package credentials_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
)

func stores(t *testing.T) map[string]credentials.Store {
	t.Helper()
	gokeyring.MockInit()
	return map[string]credentials.Store{
		"memory":  credentials.NewMemory(),
		"file":    credentials.NewFile(filepath.Join(t.TempDir(), "nested", "credentials.yaml")),
		"keyring": credentials.NewKeyringService("modelpick-test"),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := store.List()
			require.NoError(t, err)
			assert.Empty(t, ids)

			_, err = store.Get("openai")
			assert.True(t, errors.IsNotFound(err))

			require.NoError(t, store.Set("openai", "sk-one"))
			require.NoError(t, store.Set("anthropic", "sk-ant-two"))
			require.NoError(t, store.Set("openai", "sk-three"))

			secret, err := store.Get("openai")
			require.NoError(t, err)
			assert.Equal(t, "sk-three", secret)

			ids, err = store.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"anthropic", "openai"}, ids)

			require.NoError(t, store.Delete("openai"))
			require.NoError(t, store.Delete("openai"), "delete is idempotent")

			ids, err = store.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"anthropic"}, ids)

			assert.True(t, errors.IsValidationError(store.Set("", "x")))
		})
	}
}

func TestFileStorePersistsWithOwnerOnlyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, credentials.NewFile(path).Set("groq", "gsk_abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second instance sees the same data, as after a restart.
	secret, err := credentials.NewFile(path).Get("groq")
	require.NoError(t, err)
	assert.Equal(t, "gsk_abc", secret)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai: [broken"), 0o600))

	_, err := credentials.NewFile(path).Get("openai")
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	store := credentials.NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("openai", "sk-x")
			_, _ = store.Get("openai")
			_, _ = store.List()
		}()
	}
	wg.Wait()

	ids, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, ids)
}

func TestOpen(t *testing.T) {
	s, err := credentials.Open(credentials.KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &credentials.Memory{}, s)

	path := filepath.Join(t.TempDir(), "c.yaml")
	s, err = credentials.Open(credentials.KindFile, path)
	require.NoError(t, err)
	assert.Equal(t, path, s.(*credentials.File).Path())

	_, err = credentials.Open("vault", "")
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
