package domain

import "fmt"

// ParameterVector names the symbolic parameters of one target instance, e.g. "a_0".
type ParameterVector struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// NewParameterVector returns the vector used for the j-th target instance.
func NewParameterVector(j, size int) ParameterVector {
	return ParameterVector{Name: fmt.Sprintf("a_%d", j), Size: size}
}

// Param returns the symbol of element i, e.g. "a_0[1]".
func (v ParameterVector) Param(i int) Param {
	return Sym(v.ElementName(i))
}

// ElementName returns the symbol name of element i.
func (v ParameterVector) ElementName(i int) string {
	return fmt.Sprintf("%s[%d]", v.Name, i)
}

// Params returns all element symbols in order.
func (v ParameterVector) Params() []Param {
	out := make([]Param, v.Size)
	for i := range out {
		out[i] = v.Param(i)
	}
	return out
}

// Truncation is the minimal sub-program derived for one occurrence.
// The custom program replaces the target instances 0..Index with parametrized operations.
type Truncation struct {
	Index      int               `json:"index"`
	Occurrence Occurrence        `json:"occurrence"`
	Baseline   Program           `json:"baseline"`
	Custom     Program           `json:"custom"`
	Mapping    QubitMapping      `json:"-"`
	Layout     Layout            `json:"-"`
	Parameters []ParameterVector `json:"parameters"`
}

// Levels returns the number of parametrized target instances (Index+1).
func (t Truncation) Levels() int {
	return len(t.Parameters)
}

// Bind assigns the action values to the custom program's parameter vectors.
// actions holds Levels()*size values ordered instance by instance.
func (t Truncation) Bind(actions []float64) (Program, error) {
	total := 0
	for _, v := range t.Parameters {
		total += v.Size
	}
	if len(actions) != total {
		return Program{}, fmt.Errorf("truncation %d expects %d action values, got %d", t.Index, total, len(actions))
	}
	values := make(map[string]float64, total)
	k := 0
	for _, v := range t.Parameters {
		for i := 0; i < v.Size; i++ {
			values[v.ElementName(i)] = actions[k]
			k++
		}
	}
	out := t.Custom.Clone()
	for i := range out.Instructions {
		for j, p := range out.Instructions[i].Params {
			if val, ok := values[p.Symbol]; ok && !p.IsBound() {
				out.Instructions[i].Params[j].Value = &val
			}
		}
	}
	return out, nil
}

// Target describes the calibrated operation for one occurrence.
type Target struct {
	Gate           string   `json:"gate"`
	PhysicalQubits []int    `json:"physical_qubits"`
	NeighborQubits []int    `json:"neighbor_qubits"`
	NextNeighbors  []int    `json:"next_neighbor_qubits"`
	NReps          int      `json:"n_reps"`
	Baseline       Program  `json:"baseline"`
	Register       Register `json:"register"`
	Layout         Layout   `json:"-"`
}
