package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

// newWalletServer answers every request with the given result or JSON-RPC
// error.
func newWalletServer(t *testing.T, result interface{}, rpcError map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcError != nil {
			resp["error"] = rpcError
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestAddresses(t *testing.T) {
	srv := newWalletServer(t, []string{"0x1111111111111111111111111111111111111111"}, nil)

	provider, err := NewRPCProvider(srv.URL)
	require.NoError(t, err)
	defer provider.Close()

	addresses, err := provider.RequestAddresses(context.Background())
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), addresses[0])
}

func TestUserRejectionByErrorCode(t *testing.T) {
	srv := newWalletServer(t, nil, map[string]interface{}{
		"code":    4001,
		"message": "User denied the request",
	})

	provider, err := NewRPCProvider(srv.URL)
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.RequestAddresses(context.Background())
	assert.ErrorIs(t, err, ErrUserRejected)
}

func TestUserRejectionByMessage(t *testing.T) {
	srv := newWalletServer(t, nil, map[string]interface{}{
		"code":    -32000,
		"message": "User rejected the signing request",
	})

	provider, err := NewRPCProvider(srv.URL)
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.SignUserOperationHash(context.Background(),
		common.Address{}, common.Hash{})
	assert.ErrorIs(t, err, ErrUserRejected)
}

func TestEmptyGrantListIsAnError(t *testing.T) {
	srv := newWalletServer(t, []interface{}{}, nil)

	provider, err := NewRPCProvider(srv.URL)
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.RequestExecutionPermissions(context.Background(), nil)
	assert.ErrorContains(t, err, "no granted permissions")
}

func TestOtherErrorsAreWrapped(t *testing.T) {
	srv := newWalletServer(t, nil, map[string]interface{}{
		"code":    -32603,
		"message": "internal error",
	})

	provider, err := NewRPCProvider(srv.URL)
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.RequestAddresses(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserRejected)
	assert.Contains(t, err.Error(), "failed to request wallet addresses")
}
