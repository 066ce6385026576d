package decode

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ownableABI = `[
  {"inputs":[{"internalType":"address","name":"newOwner","type":"address"}],"name":"transferOwnership","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"renounceOwnership","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"previousOwner","type":"address"},{"indexed":true,"internalType":"address","name":"newOwner","type":"address"}],"name":"OwnershipTransferred","type":"event"}
]`

const mintABI = `[
  {"inputs":[{"components":[{"internalType":"string","name":"tokenURI","type":"string"},{"internalType":"string","name":"metadataURI","type":"string"},{"components":[{"internalType":"address","name":"account","type":"address"},{"internalType":"uint32","name":"value","type":"uint32"}],"internalType":"struct Media.Share","name":"share","type":"tuple"}],"internalType":"struct Media.Data","name":"data","type":"tuple"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"anonymous":false,"inputs":[{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"},{"indexed":false,"internalType":"string","name":"uri","type":"string"},{"components":[{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"bytes32","name":"tag","type":"bytes32"}],"indexed":false,"internalType":"struct Media.Receipt","name":"receipt","type":"tuple"}],"name":"Minted","type":"event"},
  {"inputs":[{"internalType":"uint256[]","name":"ids","type":"uint256[]"},{"components":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"internalType":"struct Batch.Item[]","name":"items","type":"tuple[]"}],"name":"batch","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

type shareArg struct {
	Account common.Address
	Value   uint32
}

type dataArg struct {
	TokenURI    string
	MetadataURI string
	Share       shareArg
}

func TestDecodeCallScalar(t *testing.T) {
	iface, err := ParseInterface(ownableABI)
	require.NoError(t, err)

	newOwner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	payload, err := iface.ABI().Pack("transferOwnership", newOwner)
	require.NoError(t, err)

	decoded, err := NewDecoder(zap.NewNop()).Call(iface, hexutil.Encode(payload))
	require.NoError(t, err)

	assert.Equal(t, "transferOwnership", decoded.MemberName)
	assert.Equal(t, map[string]interface{}{"newOwner": newOwner.Hex()}, decoded.Fields)
	require.Len(t, decoded.Schema, 1)
	assert.Equal(t, "newOwner", decoded.Schema[0].Name)
}

func TestDecodeCallFlattensNestedTuples(t *testing.T) {
	iface, err := ParseInterface(mintABI)
	require.NoError(t, err)

	account := common.HexToAddress("0x2222222222222222222222222222222222222222")
	payload, err := iface.ABI().Pack("mint", dataArg{
		TokenURI:    "https://ipfs.example/token",
		MetadataURI: "https://ipfs.example/meta",
		Share:       shareArg{Account: account, Value: 25},
	})
	require.NoError(t, err)

	decoded, err := NewDecoder(nil).Call(iface, hexutil.Encode(payload))
	require.NoError(t, err)

	assert.Equal(t, "mint", decoded.MemberName)
	assert.Equal(t, map[string]interface{}{
		"data.tokenURI":      "https://ipfs.example/token",
		"data.metadataURI":   "https://ipfs.example/meta",
		"data.share.account": account.Hex(),
		"data.share.value":   "25",
	}, decoded.Fields)
}

func TestDecodeCallKeepsArraysAsScalars(t *testing.T) {
	iface, err := ParseInterface(mintABI)
	require.NoError(t, err)

	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	items := []struct {
		To     common.Address
		Amount *big.Int
	}{{To: to, Amount: big.NewInt(7)}}
	payload, err := iface.ABI().Pack("batch", []*big.Int{big.NewInt(1), big.NewInt(2)}, items)
	require.NoError(t, err)

	decoded, err := NewDecoder(nil).Call(iface, hexutil.Encode(payload))
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"1", "2"}, decoded.Fields["ids"])
	assert.Equal(t, []interface{}{map[string]interface{}{"to": to.Hex(), "amount": "7"}}, decoded.Fields["items"])
}

func TestDecodeCallIsIdempotent(t *testing.T) {
	iface, err := ParseInterface(ownableABI)
	require.NoError(t, err)

	payload, err := iface.ABI().Pack("transferOwnership", common.HexToAddress("0x01"))
	require.NoError(t, err)

	decoder := NewDecoder(nil)
	first, err := decoder.Call(iface, hexutil.Encode(payload))
	require.NoError(t, err)
	second, err := decoder.Call(iface, hexutil.Encode(payload))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeCallFailuresReturnSentinel(t *testing.T) {
	iface, err := ParseInterface(ownableABI)
	require.NoError(t, err)

	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"unknown selector", "0xdeadbeef", ErrNoMatch},
		{"short payload", "0x01", ErrMalformed},
		{"not hex", "0xzz", ErrMalformed},
		{"truncated args", "0xf2fde38b0000", ErrMalformed},
	}

	decoder := NewDecoder(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := decoder.Call(iface, tc.payload)
			require.ErrorIs(t, err, tc.want)
			assert.False(t, decoded.Ok())
			assert.Empty(t, decoded.Fields)
			assert.Empty(t, decoded.Schema)
		})
	}
}

func TestDecodeCallOverloadUsesFirstDeclaration(t *testing.T) {
	const overloaded = `[
	  {"inputs":[{"name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"type":"function"},
	  {"inputs":[{"components":[{"name":"amount","type":"uint256"}],"name":"order","type":"tuple"}],"name":"deposit","outputs":[],"type":"function"}
	]`
	iface, err := ParseInterface(overloaded)
	require.NoError(t, err)

	decoder := NewDecoder(nil)

	first, err := iface.ABI().Pack("deposit", big.NewInt(5))
	require.NoError(t, err)
	decoded, err := decoder.Call(iface, hexutil.Encode(first))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"amount": "5"}, decoded.Fields)

	// The tuple overload resolves to the first declaration's schema, which
	// has no composite "order" parameter.
	second, err := iface.ABI().Pack("deposit0", struct{ Amount *big.Int }{big.NewInt(9)})
	require.NoError(t, err)
	decoded, err = decoder.Call(iface, hexutil.Encode(second))
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.False(t, decoded.Ok())
}

func TestDecodeEventIndexedAndData(t *testing.T) {
	iface, err := ParseInterface(mintABI)
	require.NoError(t, err)

	event := iface.ABI().Events["Minted"]
	receipt := struct {
		Amount *big.Int
		Tag    [32]byte
	}{Amount: big.NewInt(42), Tag: [32]byte{0xab}}
	data, err := event.Inputs.NonIndexed().Pack("ipfs://uri", receipt)
	require.NoError(t, err)

	topics := []string{event.ID.Hex(), common.BigToHash(big.NewInt(77)).Hex()}
	decoded, err := NewDecoder(nil).Event(iface, topics, hexutil.Encode(data))
	require.NoError(t, err)

	assert.Equal(t, "Minted", decoded.MemberName)
	assert.Equal(t, "77", decoded.Fields["tokenId"])
	assert.Equal(t, "ipfs://uri", decoded.Fields["uri"])
	assert.Equal(t, "42", decoded.Fields["receipt.amount"])
	assert.Equal(t, common.Hash{0xab}.Hex(), decoded.Fields["receipt.tag"])
}

func TestDecodeEventAllIndexed(t *testing.T) {
	iface, err := ParseInterface(ownableABI)
	require.NoError(t, err)

	prev := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	next := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	topics := []string{
		iface.ABI().Events["OwnershipTransferred"].ID.Hex(),
		common.BytesToHash(prev.Bytes()).Hex(),
		common.BytesToHash(next.Bytes()).Hex(),
	}

	decoded, err := NewDecoder(nil).Event(iface, topics, "0x")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"previousOwner": prev.Hex(),
		"newOwner":      next.Hex(),
	}, decoded.Fields)
}

func TestDecodeEventFailures(t *testing.T) {
	iface, err := ParseInterface(ownableABI)
	require.NoError(t, err)
	topic0 := iface.ABI().Events["OwnershipTransferred"].ID.Hex()

	decoder := NewDecoder(nil)

	_, err = decoder.Event(iface, []string{topic0}, "")
	require.ErrorIs(t, err, ErrEmptyData)

	_, err = decoder.Event(iface, nil, "0x")
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = decoder.Event(iface, []string{common.Hash{0x01}.Hex()}, "0x")
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = decoder.Event(iface, []string{topic0}, "0x")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeEventAmbiguousSelector(t *testing.T) {
	const duplicated = `[
	  {"anonymous":false,"inputs":[{"indexed":false,"name":"value","type":"uint256"}],"name":"Ping","type":"event"},
	  {"anonymous":false,"inputs":[{"indexed":false,"name":"amount","type":"uint256"}],"name":"Ping","type":"event"}
	]`
	iface, err := ParseInterface(duplicated)
	require.NoError(t, err)

	selector := EventSelector(iface.Members[0])
	data := common.BigToHash(big.NewInt(1)).Bytes()

	decoded, err := NewDecoder(nil).Event(iface, []string{selector.Hex()}, hexutil.Encode(data))
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.False(t, decoded.Ok())
}
