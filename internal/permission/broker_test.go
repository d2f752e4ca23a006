package permission

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/proofhtf/proofhtf-api/internal/account"
	"github.com/proofhtf/proofhtf-api/internal/keystore"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/mocks"
	"github.com/proofhtf/proofhtf-api/internal/session"
	"github.com/proofhtf/proofhtf-api/internal/storage"
	"github.com/proofhtf/proofhtf-api/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	logger.InitLogger("test")
}

var (
	testOwner             = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testFactory           = common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")
	testDelegationManager = common.HexToAddress("0xdb9B1e94B5b69Df7e401DDbedE43491141047dB3")
)

func testScope() Scope {
	return Scope{
		ChainID:        11155111,
		PeriodAmount:   big.NewInt(100000000000000000),
		PeriodDuration: 86400,
		TTL:            24 * time.Hour,
	}
}

func newTestBroker(t *testing.T) (*Broker, *mocks.MockProvider, *session.Store, *keystore.Store) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	provider := mocks.NewMockProvider(ctrl)
	store := storage.NewMemoryStore()
	signers := keystore.NewStore(store)
	sessions := session.NewStore(store)
	accounts := account.NewFactory(testFactory, account.ImplementationHybrid, nil)

	return NewBroker(signers, accounts, provider, sessions, testScope()), provider, sessions, signers
}

func TestRequestSessionBindsLocalSigner(t *testing.T) {
	broker, provider, sessions, signers := newTestBroker(t)

	signer, err := signers.GetOrCreateLocalSigner()
	require.NoError(t, err)

	provider.EXPECT().
		RequestExecutionPermissions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, reqs []wallet.PermissionRequest) ([]wallet.GrantedPermission, error) {
			require.Len(t, reqs, 1)
			req := reqs[0]

			// The grant must authorize the local signer, never the owner or
			// the session smart account.
			assert.Equal(t, signer.Address(), req.Signer.Data.Address)
			assert.Equal(t, "account", req.Signer.Type)
			assert.Equal(t, "native-token-periodic", req.Permission.Type)
			assert.Equal(t, uint64(11155111), req.ChainID)
			assert.Equal(t, "100000000000000000", req.Permission.Data.PeriodAmount.ToInt().String())
			assert.Equal(t, uint64(86400), req.Permission.Data.PeriodDuration)
			assert.True(t, req.IsAdjustmentAllowed)

			return []wallet.GrantedPermission{{
				Context:    hexutil.Bytes{0xca, 0xfe},
				SignerMeta: wallet.SignerMeta{DelegationManager: testDelegationManager},
				Expiry:     req.Expiry,
			}}, nil
		})

	sess, err := broker.RequestSession(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, testOwner, sess.OwnerAddress)
	assert.Equal(t, signer.Address(), sess.Grant.SignerAddress)
	assert.Equal(t, testDelegationManager, sess.Grant.DelegationManager)
	assert.NotEqual(t, common.Address{}, sess.SessionAccountAddress)
	assert.NotEqual(t, testOwner, sess.SessionAccountAddress)

	// The session survives a reload.
	loaded, err := sessions.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.SessionAccountAddress, loaded.SessionAccountAddress)
}

func TestRequestSessionUserRejection(t *testing.T) {
	broker, provider, sessions, _ := newTestBroker(t)

	provider.EXPECT().
		RequestExecutionPermissions(gomock.Any(), gomock.Any()).
		Return(nil, wallet.ErrUserRejected)

	_, err := broker.RequestSession(context.Background(), testOwner)
	assert.ErrorIs(t, err, wallet.ErrUserRejected)

	// Nothing persisted after a rejection.
	loaded, err := sessions.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRequestSessionRejectsEmptyContext(t *testing.T) {
	broker, provider, _, _ := newTestBroker(t)

	provider.EXPECT().
		RequestExecutionPermissions(gomock.Any(), gomock.Any()).
		Return([]wallet.GrantedPermission{{
			SignerMeta: wallet.SignerMeta{DelegationManager: testDelegationManager},
		}}, nil)

	_, err := broker.RequestSession(context.Background(), testOwner)
	assert.ErrorContains(t, err, "permission context")
}

func TestRequestSessionRejectsMissingDelegationManager(t *testing.T) {
	broker, provider, _, _ := newTestBroker(t)

	provider.EXPECT().
		RequestExecutionPermissions(gomock.Any(), gomock.Any()).
		Return([]wallet.GrantedPermission{{
			Context: hexutil.Bytes{0x01},
		}}, nil)

	_, err := broker.RequestSession(context.Background(), testOwner)
	assert.ErrorContains(t, err, "delegation manager")
}

func TestRevokeClearsSession(t *testing.T) {
	broker, provider, sessions, _ := newTestBroker(t)

	provider.EXPECT().
		RequestExecutionPermissions(gomock.Any(), gomock.Any()).
		Return([]wallet.GrantedPermission{{
			Context:    hexutil.Bytes{0x01},
			SignerMeta: wallet.SignerMeta{DelegationManager: testDelegationManager},
			Expiry:     time.Now().Add(time.Hour).Unix(),
		}}, nil)

	_, err := broker.RequestSession(context.Background(), testOwner)
	require.NoError(t, err)

	require.NoError(t, broker.Revoke())

	loaded, err := sessions.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
