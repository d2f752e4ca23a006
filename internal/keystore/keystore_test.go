package keystore

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/proofhtf/proofhtf-api/internal/constants"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

// failingStore simulates an unavailable backing store.
type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (failingStore) Set(string, []byte) error         { return errors.New("disk gone") }
func (failingStore) Delete(string) error              { return errors.New("disk gone") }

func TestGetOrCreateLocalSignerIsIdempotent(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())

	first, err := store.GetOrCreateLocalSigner()
	require.NoError(t, err)

	second, err := store.GetOrCreateLocalSigner()
	require.NoError(t, err)

	assert.Equal(t, first.Address(), second.Address())
}

func TestClearRotatesIdentity(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())

	first, err := store.GetOrCreateLocalSigner()
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	second, err := store.GetOrCreateLocalSigner()
	require.NoError(t, err)

	assert.NotEqual(t, first.Address(), second.Address())
}

func TestStorageUnavailableHasNoFallback(t *testing.T) {
	store := NewStore(failingStore{})

	signer, err := store.GetOrCreateLocalSigner()
	assert.Nil(t, signer)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestSignHashProducesRecoverableSignature(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())
	signer, err := store.GetOrCreateLocalSigner()
	require.NoError(t, err)

	hash := common.BytesToHash([]byte("0123456789abcdef0123456789abcdef"))

	sig, err := signer.SignHash(hash)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	// V must be 27 or 28 for on-chain ecrecover.
	assert.Contains(t, []byte{27, 28}, sig[64])
}

func TestStoredKeyIsHexEncoded(t *testing.T) {
	mem := storage.NewMemoryStore()
	store := NewStore(mem)

	_, err := store.GetOrCreateLocalSigner()
	require.NoError(t, err)

	raw, ok, err := mem.Get(constants.SignerStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0x", string(raw[:2]))
	assert.Len(t, raw, 2+64)
}
