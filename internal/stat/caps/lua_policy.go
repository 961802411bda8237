package caps

import (
	"fmt"
	"sync"

	lua "github.com/Shopify/go-lua"

	"github.com/louisbranch/statcore/internal/stat"
)

const mergeFunctionName = "merge_caps"

// LoadLuaPolicy compiles a Lua script and returns a MergeFunc backed by
// its merge_caps(dimension, layers) function. The function receives the
// dimension name and an array of {name, priority, min, max} tables in
// layer priority order, and returns either min, max or nil to leave the
// dimension uncapped.
//
// A lua.State is not safe for concurrent use, so calls are serialized.
func LoadLuaPolicy(path string) (MergeFunc, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load policy script: %w", err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run policy script: %w", err)
	}

	state.Global(mergeFunctionName)
	if state.TypeOf(-1) != lua.TypeFunction {
		state.Pop(1)
		return nil, fmt.Errorf("policy script must define function %q", mergeFunctionName)
	}
	state.Pop(1)

	var mu sync.Mutex
	merge := func(dimension string, layers []LayerCaps) (stat.Caps, bool, error) {
		mu.Lock()
		defer mu.Unlock()

		state.Global(mergeFunctionName)
		state.PushString(dimension)
		pushLayerCaps(state, layers)

		if err := state.ProtectedCall(2, 2, 0); err != nil {
			return stat.Caps{}, false, fmt.Errorf("call %s: %w", mergeFunctionName, err)
		}

		if state.TypeOf(-2) == lua.TypeNil {
			state.Pop(2)
			return stat.Caps{}, false, nil
		}
		min, okMin := state.ToNumber(-2)
		max, okMax := state.ToNumber(-1)
		state.Pop(2)
		if !okMin || !okMax {
			return stat.Caps{}, false, fmt.Errorf("%s must return two numbers or nil", mergeFunctionName)
		}
		return stat.Caps{Min: min, Max: max}, true, nil
	}
	return merge, nil
}

func pushLayerCaps(state *lua.State, layers []LayerCaps) {
	state.CreateTable(len(layers), 0)
	for i, lc := range layers {
		state.CreateTable(0, 4)
		state.PushString(lc.Layer)
		state.SetField(-2, "name")
		state.PushNumber(float64(lc.Priority))
		state.SetField(-2, "priority")
		state.PushNumber(lc.Caps.Min)
		state.SetField(-2, "min")
		state.PushNumber(lc.Caps.Max)
		state.SetField(-2, "max")
		state.RawSetInt(-2, i+1)
	}
}
