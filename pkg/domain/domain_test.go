package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgram_Validate(t *testing.T) {
	tests := []struct {
		name    string
		program domain.Program
		wantErr bool
	}{
		{"ok", domain.NewProgramBuilder("p", 2).Gate("cx", nil, 0, 1).Build(), false},
		{"no qubits", domain.Program{Name: "p"}, true},
		{"outside universe", domain.NewProgramBuilder("p", 1).Gate("cx", nil, 0, 1).Build(), true},
		{"repeated qubit", domain.NewProgramBuilder("p", 2).Gate("cx", nil, 1, 1).Build(), true},
		{"shift phase arity", domain.NewProgramBuilder("p", 1).Append(domain.Instruction{Kind: domain.KindShiftPhase, Qubits: []int{0}}).Build(), true},
		{"play without pulse", domain.NewProgramBuilder("p", 1).Play("", nil, 0).Build(), true},
		{"negative start", domain.NewProgramBuilder("p", 1).Scheduled().Gate("x", nil, 0).At(-1).Build(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.program.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProgram_Assign(t *testing.T) {
	p := domain.NewProgramBuilder("p", 1).
		Gate("rz", []domain.Param{domain.Sym("b")}, 0).
		Gate("rx", []domain.Param{domain.Sym("a"), domain.Lit(1)}, 0).
		Build()

	assert.Equal(t, []string{"a", "b"}, p.Parameters())
	err := p.RequireBound()
	assert.ErrorIs(t, err, domain.ErrUnresolvedParameter)

	bound, err := p.Assign(map[string]float64{"a": 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, bound.Parameters())
	assert.Equal(t, []string{"a", "b"}, p.Parameters(), "source program must not change")

	_, err = p.Assign(map[string]float64{"zeta": 1})
	var unresolved *domain.UnresolvedParameterError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, []string{"zeta"}, unresolved.Names)

	full, err := bound.Assign(map[string]float64{"b": 2})
	require.NoError(t, err)
	assert.NoError(t, full.RequireBound())
	assert.Equal(t, "rx(a=0.5,1)[0]", full.Instructions[1].Label())
}

func TestProgramBuilder_Clone(t *testing.T) {
	b := domain.NewProgramBuilder("p", 2).Gate("x", []domain.Param{domain.Lit(1)}, 0)
	first := b.Build()
	b.Gate("x", nil, 1)
	second := b.Build()

	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 2, second.Len())

	*second.Instructions[0].Params[0].Value = 7
	assert.Equal(t, 1.0, first.Instructions[0].Params[0].Float())
}

func TestMappingBuilder_FirstTouch(t *testing.T) {
	mb, err := domain.NewMappingBuilder([]int{3, 1})
	require.NoError(t, err)

	e, fresh, err := mb.Assign(0, domain.RoleNearestNeighbor)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, domain.MappingEntry{Context: 0, Role: domain.RoleNearestNeighbor, Slot: 0, Local: 2}, e)

	e, fresh, err = mb.Assign(0, domain.RoleNextNeighbor)
	require.NoError(t, err)
	assert.False(t, fresh, "a classified qubit keeps its first role")
	assert.Equal(t, domain.RoleNearestNeighbor, e.Role)

	_, _, err = mb.Assign(5, domain.RoleNextNeighbor)
	require.NoError(t, err)
	_, _, err = mb.Assign(6, domain.RoleTarget)
	assert.Error(t, err)

	m := mb.Freeze()
	_, _, err = mb.Assign(7, domain.RoleNextNeighbor)
	assert.ErrorIs(t, err, domain.ErrMappingFrozen)

	assert.Equal(t, 4, m.Len())
	assert.Equal(t, domain.Register{Name: "tgt", Qubits: []int{0, 1}}, m.Register(domain.RoleTarget))
	assert.Equal(t, []int{3, 1}, m.ContextQubits(domain.RoleTarget))
	assert.Equal(t, []int{5}, m.ContextQubits(domain.RoleNextNeighbor))

	_, err = domain.NewMappingBuilder([]int{1, 1})
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	mb, err := domain.NewMappingBuilder([]int{0})
	require.NoError(t, err)
	_, _, err = mb.Assign(2, domain.RoleNearestNeighbor)
	require.NoError(t, err)
	m := mb.Freeze()

	l := domain.NewLayout(m, []int{10, 11, 12})
	p, ok := l.Physical(1)
	require.True(t, ok)
	assert.Equal(t, 12, p)
	assert.Equal(t, []int{12}, l.PhysicalQubits(domain.RoleNearestNeighbor))

	identity := domain.NewLayout(m, nil)
	assert.Equal(t, []int{2}, identity.PhysicalQubits(domain.RoleNearestNeighbor))
}

func TestCouplingMap_Neighbors(t *testing.T) {
	c := domain.CouplingMap{Edges: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}}
	assert.Equal(t, 5, c.Size())
	assert.Equal(t, []int{0, 2}, c.Neighbors([]int{1}))
	assert.Equal(t, []int{0, 3}, c.Neighbors([]int{1, 2}))
	assert.Empty(t, c.Neighbors([]int{9}))
}

func TestDevice_Validate(t *testing.T) {
	assert.NoError(t, domain.Device{}.Validate(3))
	assert.Error(t, domain.Device{PhysicalMap: []int{0, 1}}.Validate(3))
	assert.Error(t, domain.Device{PhysicalMap: []int{0, 0, 1}}.Validate(3))
	assert.Equal(t, 7, domain.Device{PhysicalMap: []int{7}}.Physical(0))
}

func TestDurations_Of(t *testing.T) {
	d := domain.Durations{Default: 2, ByName: map[string]int{"cx": 5}}
	assert.Equal(t, 5, d.Of(domain.Instruction{Kind: domain.KindGeneric, Name: "cx"}))
	assert.Equal(t, 2, d.Of(domain.Instruction{Kind: domain.KindGeneric, Name: "x"}))
	assert.Equal(t, 9, d.Of(domain.Instruction{Kind: domain.KindGeneric, Name: "cx", Duration: 9}))
	assert.Equal(t, 0, d.Of(domain.Instruction{Kind: domain.KindDelay}))
}

func TestPattern_Matches(t *testing.T) {
	p := domain.Pattern{Name: "cx", Qubits: []int{0, 1}}
	assert.True(t, p.Matches(domain.Instruction{Kind: domain.KindGeneric, Name: "cx", Qubits: []int{0, 1}}))
	assert.False(t, p.Matches(domain.Instruction{Kind: domain.KindGeneric, Name: "cx", Qubits: []int{1, 0}}))
	assert.False(t, p.Matches(domain.Instruction{Kind: domain.KindPlay, Name: "cx", Qubits: []int{0, 1}}))

	withParam := domain.Pattern{Name: "rz", Qubits: []int{0}, Params: []domain.Param{domain.Lit(0.5)}}
	assert.True(t, withParam.Matches(domain.Instruction{Kind: domain.KindGeneric, Name: "rz", Qubits: []int{0}, Params: []domain.Param{domain.Lit(0.5)}}))
	assert.False(t, withParam.Matches(domain.Instruction{Kind: domain.KindGeneric, Name: "rz", Qubits: []int{0}, Params: []domain.Param{domain.Lit(0.4)}}))
}

func TestTruncation_Bind(t *testing.T) {
	v0, v1 := domain.NewParameterVector(0, 2), domain.NewParameterVector(1, 2)
	tr := domain.Truncation{
		Index: 1,
		Custom: domain.NewProgramBuilder("c_circ1", 1).
			Gate("u", v0.Params(), 0).
			Gate("u", v1.Params(), 0).
			Build(),
		Parameters: []domain.ParameterVector{v0, v1},
	}
	assert.Equal(t, 2, tr.Levels())

	bound, err := tr.Bind([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, bound.RequireBound())
	got := []float64{
		bound.Instructions[0].Params[0].Float(), bound.Instructions[0].Params[1].Float(),
		bound.Instructions[1].Params[0].Float(), bound.Instructions[1].Params[1].Float(),
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4}, got); diff != "" {
		t.Errorf("bound values mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, tr.Custom.Parameters(), "binding must not modify the truncation")

	_, err = tr.Bind([]float64{1})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := domain.Summarize("r", []domain.EpisodeRecord{
		{MeanReward: 1, MeanAction: []float64{0.1}},
		{MeanReward: 3, MeanAction: []float64{0.3}},
		{MeanReward: 3, MeanAction: []float64{0.4}},
		{MeanReward: 2, MeanAction: []float64{0.2}},
	})
	assert.Equal(t, domain.Summary{RunID: "r", Episodes: 4, BestReward: 3, BestAction: []float64{0.3}, LastReward: 2}, s)
}

func TestChainHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnReset: func(context.Context, *domain.EpisodeEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnReset:   func(context.Context, *domain.EpisodeEvent) { calls = append(calls, "b") },
		OnRebuild: func(context.Context, *domain.RebuildEvent) { calls = append(calls, "rebuild") },
	}

	h := domain.ChainHooks(a, domain.LifecycleHooks{}, b)
	h.OnReset(context.Background(), &domain.EpisodeEvent{})
	h.OnRebuild(context.Background(), &domain.RebuildEvent{})
	assert.Nil(t, h.OnStep)
	assert.Equal(t, []string{"a", "b", "rebuild"}, calls)
}
