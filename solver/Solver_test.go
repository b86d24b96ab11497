package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolverJSON(t *testing.T) {
	s, err := NewVanilla(0.01, 32, 5)
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded Solver
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Vanilla, decoded.Type)
	assert.Equal(t, VanillaConfig{StepSize: 0.01, Batch: 32, Clip: 5},
		decoded.Config)
	assert.NotNil(t, decoded.Solver)
}

func TestSolverJSONAdam(t *testing.T) {
	in := `{"Type":"Adam","Config":{"StepSize":0.001,"Epsilon":1e-8,` +
		`"Beta1":0.9,"Beta2":0.999,"Batch":16}}`

	var s Solver
	require.NoError(t, json.Unmarshal([]byte(in), &s))
	assert.Equal(t, Adam, s.Type)
	assert.Equal(t, 16, s.Config.(AdamConfig).Batch)
}

func TestSolverJSONInvalid(t *testing.T) {
	var s Solver
	err := json.Unmarshal([]byte(`{"Type":"Momentum","Config":{}}`), &s)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"Type":"Vanilla","Config":{"StepSize":0}}`),
		&s)
	assert.Error(t, err)
}

func TestConstructors(t *testing.T) {
	_, err := NewDefaultRMSProp(0.01, 8)
	assert.NoError(t, err)

	_, err = NewDefaultAdam(-1, 8)
	assert.Error(t, err)

	assert.Equal(t, Adam, Default(4).Type)
}

func TestAdamClip(t *testing.T) {
	s, err := NewAdam(AdamConfig{StepSize: 0.01, Beta1: 0.9, Beta2: 0.99,
		Batch: 4, Clip: 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Config.(AdamConfig).Clip)

	_, err = NewAdam(AdamConfig{StepSize: 0.01, Beta1: 1, Batch: 4})
	assert.Error(t, err)
}
