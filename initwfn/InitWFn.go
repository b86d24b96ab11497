// Package initwfn implements seeded weight initialization algorithms
// which can be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	"golang.org/x/exp/rand"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	HeN     Type = "HeN"
	Zeroes  Type = "Zeroes"
)

var configTypes = map[string]reflect.Type{
	string(GlorotU): reflect.TypeOf(GlorotUConfig{}),
	string(GlorotN): reflect.TypeOf(GlorotNConfig{}),
	string(HeU):     reflect.TypeOf(HeUConfig{}),
	string(HeN):     reflect.TypeOf(HeNConfig{}),
	string(Zeroes):  reflect.TypeOf(ZeroesConfig{}),
}

// InitWFn wraps a weight initialization Config so that it can be JSON
// marshalled and unmarshalled.
type InitWFn struct {
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) *InitWFn {
	return &InitWFn{Type: c.Type(), Config: c}
}

// Seeded returns a function which draws the initial weights of a layer
// from in to out units. Weights are flattened in row major order and
// every call draws from the same source seeded with seed.
func (i *InitWFn) Seeded(seed uint64) func(in, out int) []float64 {
	src := rand.NewSource(seed)
	return func(in, out int) []float64 {
		return i.Config.Sample(in, out, src)
	}
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var typeName string
	if err := json.Unmarshal(m["Type"], &typeName); err != nil {
		return fmt.Errorf("unmarshalJSON: missing InitWFn type: %w", err)
	}
	ty, found := configTypes[typeName]
	if !found {
		return fmt.Errorf("unmarshalJSON: no such InitWFn type %v", typeName)
	}

	value := reflect.New(ty)
	if raw, ok := m["Config"]; ok {
		if err := json.Unmarshal(raw, value.Interface()); err != nil {
			return err
		}
	}

	i.Config = value.Elem().Interface().(Config)
	i.Type = Type(typeName)
	return nil
}

// Config implements a weight initialization configuration
type Config interface {
	// Sample draws in*out initial weights from src
	Sample(in, out int, src rand.Source) []float64

	// Type returns the type of initialization algorithm
	Type() Type
}
