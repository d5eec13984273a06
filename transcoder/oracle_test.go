package transcoder

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	opcuabridge "github.com/wippyai/opcua-bridge"
)

// testOracle is a map-backed type description.
type testOracle map[string][]opcuabridge.Member

func (o testOracle) MemberCount(typeName string) (int, error) {
	members, ok := o[typeName]
	if !ok {
		return 0, fmt.Errorf("unknown type %q", typeName)
	}
	return len(members), nil
}

func (o testOracle) Member(typeName string, index int) (opcuabridge.Member, error) {
	members, ok := o[typeName]
	if !ok {
		return opcuabridge.Member{}, fmt.Errorf("unknown type %q", typeName)
	}
	if index < 0 || index >= len(members) {
		return opcuabridge.Member{}, fmt.Errorf("%s has no member %d", typeName, index)
	}
	return members[index], nil
}

func leaf(name string, t wit.Type, elements uint32) opcuabridge.Member {
	return opcuabridge.Member{Name: name, Scalar: t, Elements: elements}
}

func nested(name, typeName string, elements uint32) opcuabridge.Member {
	return opcuabridge.Member{Name: name, TypeName: typeName, Elements: elements, Structured: true}
}

// scuOracle describes SCU{ID: u8, Mode: Mode_Config[2]} where Mode_Config
// carries a scalar array and an array of structures.
func scuOracle() testOracle {
	return testOracle{
		"SCU": {
			leaf("ID", wit.U8{}, 1),
			nested("Mode", "Mode_Config", 2),
		},
		"Mode_Config": {
			leaf("Enabled", wit.Bool{}, 1),
			leaf("Setpoints", wit.F32{}, 3),
			nested("Limits", "Limit", 2),
		},
		"Limit": {
			leaf("Lo", wit.S16{}, 1),
			leaf("Hi", wit.S16{}, 1),
		},
	}
}
