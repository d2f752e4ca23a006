package contract

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeCourse packs a getCourse return value the way the node would.
func encodeCourse(t *testing.T, course Course) string {
	t.Helper()
	courseAbi, err := parsedCourseABI()
	require.NoError(t, err)

	out, err := courseAbi.Methods["getCourse"].Outputs.Pack(course)
	require.NoError(t, err)
	return hexutil.Encode(out)
}

func newReaderFixture(t *testing.T, course Course) (*Reader, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_call", req.Method)
		calls.Add(1)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  encodeCourse(t, course),
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return NewReader(client, testContract), &calls
}

func TestGetCourseDecodesTuple(t *testing.T) {
	want := Course{
		CourseId:  big.NewInt(1),
		Title:     "Intro to Solidity",
		Tutor:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TutorName: "Alice",
		IsActive:  true,
	}
	reader, _ := newReaderFixture(t, want)

	got, err := reader.GetCourse(context.Background(), big.NewInt(1))
	require.NoError(t, err)

	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Tutor, got.Tutor)
	assert.Equal(t, want.TutorName, got.TutorName)
	assert.True(t, got.IsActive)
	assert.Equal(t, int64(1), got.CourseId.Int64())
}

func TestGetCourseIsCached(t *testing.T) {
	reader, calls := newReaderFixture(t, Course{CourseId: big.NewInt(1), Title: "A"})
	ctx := context.Background()

	_, err := reader.GetCourse(ctx, big.NewInt(1))
	require.NoError(t, err)
	_, err = reader.GetCourse(ctx, big.NewInt(1))
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
}

func TestInvalidateDropsOnlyNamedScopes(t *testing.T) {
	reader, calls := newReaderFixture(t, Course{CourseId: big.NewInt(1), Title: "A"})
	ctx := context.Background()

	_, err := reader.GetCourse(ctx, big.NewInt(1))
	require.NoError(t, err)

	// An unrelated scope leaves course reads cached.
	reader.Invalidate(ScopeUsers)
	_, err = reader.GetCourse(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	// Invalidating courses forces a refetch.
	reader.Invalidate(ScopeCourses)
	_, err = reader.GetCourse(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}
