package secrets

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-agent/internal/config"
)

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	s := New(keyring.NewArrayKeyring(nil))

	got, err := s.Get("groq")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Set("groq", "gsk-123"))
	got, err = s.Get("groq")
	require.NoError(t, err)
	assert.Equal(t, "gsk-123", got)

	require.NoError(t, s.Set("groq", "gsk-456"))
	got, _ = s.Get("groq")
	assert.Equal(t, "gsk-456", got)

	other, err := s.Get("openai")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.Delete("groq"))
	got, err = s.Get("groq")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.Delete("groq"), ErrNotFound)
}

func TestStore_RejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	s := New(keyring.NewArrayKeyring(nil))
	_, err := s.Get("mistral")
	assert.ErrorContains(t, err, `unknown provider "mistral"`)
	assert.Error(t, s.Set("mistral", "k"))
	assert.Error(t, s.Delete("mistral"))
}

func TestStore_RejectsEmptyKey(t *testing.T) {
	t.Parallel()

	s := New(keyring.NewArrayKeyring(nil))
	assert.ErrorContains(t, s.Set("openai", ""), "key is empty")
}

func TestStore_ReadsExistingItems(t *testing.T) {
	t.Parallel()

	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: "anthropic_api_key", Data: []byte("sk-ant")}})
	got, err := New(ring).Get("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", got)
}

type brokenRing struct{ keyring.Keyring }

func (brokenRing) Get(string) (keyring.Item, error) { return keyring.Item{}, errors.New("dbus: no session") }

func TestStore_BackendError(t *testing.T) {
	t.Parallel()

	_, err := New(brokenRing{}).Get("groq")
	assert.ErrorContains(t, err, "dbus: no session")
}

func TestLookup_ResolvesConfigKey(t *testing.T) {
	t.Parallel()

	s := New(keyring.NewArrayKeyring(nil))
	require.NoError(t, s.Set("openai", "sk-test"))

	cfg := &config.Config{LLM: config.LLMConfig{Provider: "openai"}}
	require.NoError(t, cfg.ResolveAPIKey(s.Lookup()))
	assert.Equal(t, "sk-test", cfg.LLM.APIKey())
}
