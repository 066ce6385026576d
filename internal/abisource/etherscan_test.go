package abisource

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEtherscanURL = "https://etherscan.test/api"
	testAddress      = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	ownableABI       = `[{"inputs":[{"internalType":"address","name":"newOwner","type":"address"}],"name":"transferOwnership","outputs":[],"stateMutability":"nonpayable","type":"function"}]`
)

func newTestEtherscan(t *testing.T) *Etherscan {
	t.Helper()
	client := NewEtherscan(EtherscanConfig{
		BaseURL:      testEtherscanURL,
		APIKey:       "key",
		RPS:          1000,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}, nil)
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func okBody(abiText string) map[string]interface{} {
	return map[string]interface{}{"status": "1", "message": "OK", "result": abiText}
}

func TestEtherscanResolve(t *testing.T) {
	client := newTestEtherscan(t)

	httpmock.RegisterResponderWithQuery(http.MethodGet, testEtherscanURL,
		map[string]string{"module": "contract", "action": "getabi", "address": testAddress, "apikey": "key"},
		httpmock.NewJsonResponderOrPanic(http.StatusOK, okBody(ownableABI)))

	iface, err := client.Resolve(context.Background(), testAddress)
	require.NoError(t, err)
	_, ok := iface.Function("transferOwnership")
	assert.True(t, ok)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestEtherscanNotVerified(t *testing.T) {
	client := newTestEtherscan(t)

	httpmock.RegisterResponder(http.MethodGet, testEtherscanURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"status":  "0",
			"message": "NOTOK",
			"result":  "Contract source code not verified",
		}))

	_, err := client.Resolve(context.Background(), testAddress)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestEtherscanRetriesTransientFailures(t *testing.T) {
	client := newTestEtherscan(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, testEtherscanURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			switch calls {
			case 1:
				return httpmock.NewStringResponse(http.StatusBadGateway, "bad gateway"), nil
			case 2:
				return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
					"status":  "0",
					"message": "NOTOK",
					"result":  "Max rate limit reached",
				})
			default:
				return httpmock.NewJsonResponse(http.StatusOK, okBody(ownableABI))
			}
		})

	raw, err := client.FetchABI(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, ownableABI, raw)
	assert.Equal(t, 3, calls)
}

func TestEtherscanGivesUpAfterRetries(t *testing.T) {
	client := newTestEtherscan(t)

	httpmock.RegisterResponder(http.MethodGet, testEtherscanURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	_, err := client.FetchABI(context.Background(), testAddress)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestEtherscanClientErrorNotRetried(t *testing.T) {
	client := newTestEtherscan(t)

	httpmock.RegisterResponder(http.MethodGet, testEtherscanURL,
		httpmock.NewStringResponder(http.StatusForbidden, "forbidden"))

	_, err := client.FetchABI(context.Background(), testAddress)
	require.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
