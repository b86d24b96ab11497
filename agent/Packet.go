package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// epsilonKey is the key under which a Packet carries an exploration
// rate
const epsilonKey = "epsilon"

// Gradients maps each named weight to its gradient, flattened in row
// major order
type Gradients map[string][]float64

// Names returns the names of the gradients in sorted order
func (g Gradients) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Packet is the model exchanged with the trainer: named weights
// flattened in row major order, and optionally an exploration rate to
// use from now on.
//
// A Packet is encoded as a single JSON object whose keys are the weight
// names, with the exploration rate under the "epsilon" key.
type Packet struct {
	Weights map[string][]float64
	Epsilon *float64
}

// NewPacket returns a new Packet holding weights and no exploration rate
func NewPacket(weights map[string][]float64) Packet {
	return Packet{Weights: weights}
}

// WithEpsilon returns a copy of the Packet carrying exploration rate e
func (p Packet) WithEpsilon(e float64) Packet {
	p.Epsilon = &e
	return p
}

// MarshalJSON implements the json.Marshaler interface
func (p Packet) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(p.Weights)+1)
	for name, w := range p.Weights {
		m[name] = w
	}
	if p.Epsilon != nil {
		m[epsilonKey] = *p.Epsilon
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (p *Packet) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}

	p.Weights = make(map[string][]float64, len(m))
	p.Epsilon = nil
	for name, raw := range m {
		if name == epsilonKey {
			var e float64
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("unmarshalJSON: %v: %w", name, err)
			}
			p.Epsilon = &e
			continue
		}

		var w []float64
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("unmarshalJSON: %v: %w", name, err)
		}
		p.Weights[name] = w
	}
	return nil
}

// LoadPacket reads a JSON encoded Packet from the file at path
func LoadPacket(path string) (Packet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Packet{}, fmt.Errorf("loadPacket: %w", err)
	}

	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("loadPacket: %v: %w", path, err)
	}
	return p, nil
}
