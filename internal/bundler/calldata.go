package bundler

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	pkgerrors "github.com/pkg/errors"
)

// accountABI is the execution surface of the hybrid smart account.
const accountABI = `[
	{"type":"function","name":"execute","inputs":[
		{"name":"target","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"}]},
	{"type":"function","name":"executeBatch","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"datas","type":"bytes[]"}]}
]`

// delegationManagerABI is the redemption entry point for delegated execution.
const delegationManagerABI = `[
	{"type":"function","name":"redeemDelegations","inputs":[
		{"name":"permissionContexts","type":"bytes[]"},
		{"name":"modes","type":"bytes32[]"},
		{"name":"executionCallDatas","type":"bytes[]"}]}
]`

var (
	parseOnce     sync.Once
	parsedAccount abi.ABI
	parsedManager abi.ABI
	parseErr      error
)

func parsedABIs() (abi.ABI, abi.ABI, error) {
	parseOnce.Do(func() {
		parsedAccount, parseErr = abi.JSON(strings.NewReader(accountABI))
		if parseErr != nil {
			return
		}
		parsedManager, parseErr = abi.JSON(strings.NewReader(delegationManagerABI))
	})
	return parsedAccount, parsedManager, parseErr
}

// ExecuteCallData encodes the account's execute or executeBatch call for the
// given calls. A single call uses execute; multiple calls use executeBatch,
// which the entry point applies atomically.
func ExecuteCallData(calls []Call) ([]byte, error) {
	accountAbi, _, err := parsedABIs()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse account ABI")
	}

	if len(calls) == 0 {
		return nil, pkgerrors.New("no calls to encode")
	}

	if len(calls) == 1 {
		c := calls[0]
		data, err := accountAbi.Pack("execute", c.To, orZero(c.Value), c.Data)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to encode execute")
		}
		return data, nil
	}

	targets := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	datas := make([][]byte, len(calls))
	for i, c := range calls {
		targets[i] = c.To
		values[i] = orZero(c.Value)
		datas[i] = c.Data
	}
	data, err := accountAbi.Pack("executeBatch", targets, values, datas)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to encode executeBatch")
	}
	return data, nil
}

// executionModeSingle is the single-call execution mode word.
var executionModeSingle = [32]byte{}

// RedeemDelegationsCallData wraps the calls in a delegation redemption
// against the manager named by the permission grant. Each call becomes one
// packed single execution replayed under the same opaque context.
func RedeemDelegationsCallData(permissionContext []byte, calls []Call) ([]byte, error) {
	_, managerAbi, err := parsedABIs()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse delegation manager ABI")
	}

	if len(calls) == 0 {
		return nil, pkgerrors.New("no calls to encode")
	}

	contexts := make([][]byte, len(calls))
	modes := make([][32]byte, len(calls))
	executions := make([][]byte, len(calls))
	for i, c := range calls {
		contexts[i] = permissionContext
		modes[i] = executionModeSingle
		executions[i] = packSingleExecution(c)
	}

	data, err := managerAbi.Pack("redeemDelegations", contexts, modes, executions)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to encode redeemDelegations")
	}
	return data, nil
}

// packSingleExecution packs (target ++ value ++ data) for single-call mode.
func packSingleExecution(c Call) []byte {
	out := make([]byte, 0, 20+32+len(c.Data))
	out = append(out, c.To.Bytes()...)
	out = append(out, abiUint256(orZero(c.Value))...)
	out = append(out, c.Data...)
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
