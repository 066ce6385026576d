package decode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"abiFrame/internal/model"
)

var (
	ErrNoMatch        = errors.New("no matching member")
	ErrAmbiguous      = errors.New("ambiguous event selector")
	ErrEmptyData      = errors.New("empty event data")
	ErrSchemaMismatch = errors.New("decoded value does not match schema")
	ErrMalformed      = errors.New("malformed payload")
)

// Decoded is the result of decoding one payload. An empty MemberName is the
// failure sentinel.
type Decoded struct {
	MemberName string
	Schema     []ParamSpec
	Fields     map[string]interface{}
}

// Ok reports whether decoding succeeded.
func (d Decoded) Ok() bool {
	return d.MemberName != ""
}

// Decoder decodes function call payloads and event logs against an Interface.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// Call decodes a function call payload. On failure the empty sentinel is
// returned with the reason.
func (d *Decoder) Call(iface *Interface, payload string) (Decoded, error) {
	decoded, err := decodeCall(iface, payload)
	if err != nil {
		d.logger.Debug("decode call failed", zap.Error(err))
		return Decoded{}, err
	}
	return decoded, nil
}

// Event decodes an event log. On failure the empty sentinel is returned with
// the reason.
func (d *Decoder) Event(iface *Interface, topics []string, data string) (Decoded, error) {
	decoded, err := decodeEvent(iface, topics, data)
	if err != nil {
		topic0 := ""
		if len(topics) > 0 {
			topic0 = topics[0]
		}
		d.logger.Debug("decode event failed", zap.String("topic0", topic0), zap.Error(err))
		return Decoded{}, err
	}
	return decoded, nil
}

func decodeCall(iface *Interface, payload string) (Decoded, error) {
	if iface == nil || iface.abi == nil {
		return Decoded{}, fmt.Errorf("%w: nil interface", ErrNoMatch)
	}

	name, args, err := decodeFunctionCall(iface.abi, payload)
	if err != nil {
		return Decoded{}, err
	}

	member, ok := iface.Function(name)
	if !ok {
		return Decoded{}, fmt.Errorf("%w: function %s not in member list", ErrSchemaMismatch, name)
	}

	fields, err := Flatten(nil, args, member.Inputs)
	if err != nil {
		return Decoded{}, fmt.Errorf("flatten %s: %w", name, err)
	}

	return Decoded{MemberName: name, Schema: member.Inputs, Fields: fields}, nil
}

// decodeFunctionCall selects the method from the payload selector and unpacks
// its arguments in declaration order.
func decodeFunctionCall(parsed *abi.ABI, payload string) (string, *model.Fields, error) {
	data, err := decodeHex(payload)
	if err != nil {
		return "", nil, err
	}
	if len(data) < 4 {
		return "", nil, fmt.Errorf("%w: payload shorter than selector", ErrMalformed)
	}

	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return "", nil, fmt.Errorf("%w: selector %s", ErrNoMatch, hexutil.Encode(data[:4]))
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, fmt.Errorf("%w: unpack %s: %v", ErrMalformed, method.RawName, err)
	}
	if len(values) != len(method.Inputs) {
		return "", nil, fmt.Errorf("%w: %s expected %d values, got %d", ErrMalformed, method.RawName, len(method.Inputs), len(values))
	}

	args := model.NewFields()
	for i, arg := range method.Inputs {
		val, err := toValue(arg.Type, values[i])
		if err != nil {
			return "", nil, err
		}
		args.Set(fieldName(arg.Name, i), val)
	}
	return method.RawName, args, nil
}

func decodeEvent(iface *Interface, topics []string, data string) (Decoded, error) {
	if iface == nil || iface.abi == nil {
		return Decoded{}, fmt.Errorf("%w: nil interface", ErrNoMatch)
	}
	if data == "" {
		return Decoded{}, ErrEmptyData
	}
	if len(topics) == 0 {
		return Decoded{}, fmt.Errorf("%w: missing topic0", ErrNoMatch)
	}

	hashes, err := parseTopicHashes(topics)
	if err != nil {
		return Decoded{}, err
	}

	matches := iface.EventsBySelector(hashes[0])
	switch len(matches) {
	case 0:
		return Decoded{}, fmt.Errorf("%w: topic0 %s", ErrNoMatch, hashes[0].Hex())
	case 1:
	default:
		return Decoded{}, fmt.Errorf("%w: %d events share topic0 %s", ErrAmbiguous, len(matches), hashes[0].Hex())
	}
	member := matches[0]

	event, err := iface.abi.EventByID(hashes[0])
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: topic0 %s", ErrNoMatch, hashes[0].Hex())
	}

	args, err := decodeEventArgs(*event, hashes[1:], data)
	if err != nil {
		return Decoded{}, err
	}

	fields, err := Flatten(nil, args, member.Inputs)
	if err != nil {
		return Decoded{}, fmt.Errorf("flatten %s: %w", member.Name, err)
	}

	return Decoded{MemberName: member.Name, Schema: member.Inputs, Fields: fields}, nil
}

// decodeEventArgs merges indexed topic values and unpacked data values back
// into the declared argument order.
func decodeEventArgs(event abi.Event, indexedTopics []common.Hash, dataHex string) (*model.Fields, error) {
	indexed := indexedArguments(event.Inputs)
	if len(indexedTopics) != len(indexed) {
		return nil, fmt.Errorf("%w: expected %d topics, got %d", ErrMalformed, len(indexed)+1, len(indexedTopics)+1)
	}

	data, err := decodeHex(dataHex)
	if err != nil {
		return nil, err
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrMalformed, event.RawName, err)
	}

	args := model.NewFields()
	var topicPos, dataPos int
	for i, arg := range event.Inputs {
		var (
			val model.Value
			err error
		)
		if arg.Indexed {
			val, err = topicValue(arg, indexedTopics[topicPos])
			topicPos++
		} else {
			if dataPos >= len(values) {
				return nil, fmt.Errorf("%w: %s missing data value %d", ErrMalformed, event.RawName, dataPos)
			}
			val, err = toValue(arg.Type, values[dataPos])
			dataPos++
		}
		if err != nil {
			return nil, err
		}
		args.Set(fieldName(arg.Name, i), val)
	}
	return args, nil
}

// topicValue reconstructs an indexed argument. Dynamic and composite types
// are only present as their keccak hash.
func topicValue(arg abi.Argument, topic common.Hash) (model.Value, error) {
	switch arg.Type.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return model.ScalarValue(topic.Hex()), nil
	}

	out := make(map[string]interface{}, 1)
	if err := abi.ParseTopicsIntoMap(out, abi.Arguments{arg}, []common.Hash{topic}); err != nil {
		return model.Value{}, fmt.Errorf("%w: parse topic %s: %v", ErrMalformed, arg.Name, err)
	}
	return toValue(arg.Type, out[arg.Name])
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := decodeHex(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("%w: topic length %d", ErrMalformed, len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func decodeHex(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		input = "0x" + input
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}
