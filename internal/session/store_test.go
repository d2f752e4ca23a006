package session

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/proofhtf/proofhtf-api/internal/constants"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

func testSession(expiry int64) *Session {
	return &Session{
		Grant: Grant{
			Context:           hexutil.Bytes{0x01, 0x02, 0x03},
			DelegationManager: common.HexToAddress("0xdb9B1e94B5b69Df7e401DDbedE43491141047dB3"),
			SignerAddress:     common.HexToAddress("0x3333333333333333333333333333333333333333"),
			PeriodAmount:      big.NewInt(100000000000000000),
			PeriodDuration:    86400,
			Expiry:            expiry,
		},
		OwnerAddress:          common.HexToAddress("0x1111111111111111111111111111111111111111"),
		SessionAccountAddress: common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Expiry:                expiry,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())
	expiry := time.Now().Add(time.Hour).Unix()

	require.NoError(t, store.Save(testSession(expiry)))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, hexutil.Bytes{0x01, 0x02, 0x03}, loaded.Grant.Context)
	assert.Equal(t, "100000000000000000", loaded.Grant.PeriodAmount.String())
	assert.Equal(t, uint64(86400), loaded.Grant.PeriodDuration)
	assert.Equal(t, expiry, loaded.Expiry)
	assert.Equal(t,
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		loaded.Grant.SignerAddress)
}

func TestLoadWithoutSession(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestExpiredSessionIsCleared(t *testing.T) {
	mem := storage.NewMemoryStore()
	store := NewStore(mem)

	require.NoError(t, store.Save(testSession(time.Now().Add(time.Hour).Unix())))

	// Move the clock past expiry.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// The stale record is gone, not just skipped.
	_, ok, err := mem.Get(constants.SessionStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())
	expiry := time.Now().Add(time.Hour).Unix()

	require.NoError(t, store.Save(testSession(expiry)))

	// now == expiry means expired.
	store.now = func() time.Time { return time.Unix(expiry, 0) }

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCorruptRecordIsDiscarded(t *testing.T) {
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(constants.SessionStorageKey, []byte("{not json")))

	store := NewStore(mem)
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, ok, err := mem.Get(constants.SessionStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	store := NewStore(storage.NewMemoryStore())
	require.NoError(t, store.Save(testSession(time.Now().Add(time.Hour).Unix())))

	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
