package decode

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature returns the canonical member signature, e.g. Transfer(address,address,uint256).
func Signature(member MemberSpec) string {
	types := make([]string, 0, len(member.Inputs))
	for _, param := range member.Inputs {
		types = append(types, canonicalType(param))
	}
	return member.Name + "(" + strings.Join(types, ",") + ")"
}

// EventSelector returns the keccak256 hash of the event signature.
func EventSelector(member MemberSpec) common.Hash {
	return crypto.Keccak256Hash([]byte(Signature(member)))
}

func canonicalType(param ParamSpec) string {
	if strings.HasPrefix(param.Type, "tuple") {
		parts := make([]string, 0, len(param.Components))
		for _, component := range param.Components {
			parts = append(parts, canonicalType(component))
		}
		return "(" + strings.Join(parts, ",") + ")" + strings.TrimPrefix(param.Type, "tuple")
	}

	base, suffix := param.Type, ""
	if idx := strings.Index(base, "["); idx >= 0 {
		base, suffix = base[:idx], base[idx:]
	}
	switch base {
	case "uint":
		base = "uint256"
	case "int":
		base = "int256"
	case "fixed":
		base = "fixed128x18"
	case "ufixed":
		base = "ufixed128x18"
	case "byte":
		base = "bytes1"
	}
	return base + suffix
}
