package profile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

func TestPalette_CoversEveryPredefinedType(t *testing.T) {
	palette, err := DefaultPalette()
	require.NoError(t, err)
	byName := index(palette)
	for _, typ := range models.PredefinedTypes {
		p, ok := byName[typ]
		require.True(t, ok, typ)
		assert.NoError(t, p.Validate())
		assert.False(t, p.ConsiderStart)
		assert.Equal(t, models.IsDemolitionType(typ), p.HideAtEnd, typ)
		assert.Equal(t, !models.IsDemolitionType(typ), p.UseEndOriginalColor, typ)
	}
	assert.Equal(t, models.RGBA{1, 0, 0, 1}, byName[models.TypeDemolition].InProgressColor)
}

func TestProfile_UnmarshalAppliesDefaults(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"name":"REMOVAL","start_color":[0.2,0.2,0.2]}`), &p))
	assert.Equal(t, models.RGBA{0.2, 0.2, 0.2, 1}, p.StartColor)
	assert.Equal(t, models.RGBA{1, 1, 0, 1}, p.InProgressColor)
	assert.True(t, p.ConsiderStart)
	assert.True(t, p.UseEndOriginalColor)
	assert.Equal(t, 1.0, p.ActiveTransparencyInterpol)
	assert.True(t, p.HideAtEnd)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"REMOVAL","hide_at_end":false}`), &p))
	assert.False(t, p.HideAtEnd)
}

func TestProfile_Validate(t *testing.T) {
	p := New("X")
	assert.NoError(t, p.Validate())
	p.EndTransparency = 1.5
	assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	p = New("X")
	p.StartColor = models.RGBA{1, -0.1, 0, 1}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
}

func TestProfile_Static(t *testing.T) {
	p := New("X")
	assert.False(t, p.Static())
	p.ConsiderActive, p.ConsiderEnd = false, false
	assert.True(t, p.Static())
}

func TestStore_SeedingOverMalformedJSON(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, GroupsKey, "{not json"))
	s := NewStore(kv, nil)

	added, err := s.EnsureDefaultGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(models.PredefinedTypes), added)

	profiles, err := s.GroupProfiles(ctx, DefaultGroup)
	require.NoError(t, err)
	assert.Len(t, profiles, len(models.PredefinedTypes))
}

func TestStore_SeedingIsIdempotentAndKeepsEdits(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), nil)

	_, err := s.EnsureDefaultGroup(ctx)
	require.NoError(t, err)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	edited := groups[DefaultGroup]
	for i := range edited {
		if edited[i].Name == models.TypeConstruction {
			edited[i].InProgressColor = models.RGBA{0, 0, 1, 1}
		}
	}
	// drop MOVE so the next seeding has something to top up
	kept := edited[:0]
	for _, p := range edited {
		if p.Name != models.TypeMove {
			kept = append(kept, p)
		}
	}
	require.NoError(t, s.SaveGroup(ctx, DefaultGroup, kept))

	added, err := s.EnsureDefaultGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	added, err = s.EnsureDefaultGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	profiles, err := s.GroupProfiles(ctx, DefaultGroup)
	require.NoError(t, err)
	assert.Equal(t, models.RGBA{0, 0, 1, 1}, profiles[models.TypeConstruction].InProgressColor)
	assert.Contains(t, profiles, models.TypeMove)
}

func TestStore_InvalidStoredProfileIsDropped(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, GroupsKey, `{"G":{"ColorTypes":[
		{"name":"CONSTRUCTION","in_progress_color":[0,0,1,1]},
		{"name":"BROKEN","end_color":[3,0,0]}
	]}}`))
	s := NewStore(kv, nil)

	profiles, err := s.GroupProfiles(ctx, "G")
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Contains(t, profiles, models.TypeConstruction)
}

func TestStore_SaveGroupRejectsInvalid(t *testing.T) {
	p := New("X")
	p.StartTransparency = -1
	err := NewStore(NewMemoryKV(), nil).SaveGroup(context.Background(), "G", []Profile{p})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestStore_GroupManagement(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), nil)
	_, err := s.EnsureDefaultGroup(ctx)
	require.NoError(t, err)

	created, err := s.EnsureProfile(ctx, "Phases", "Phase 1")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.EnsureProfile(ctx, "Phases", "Phase 1")
	require.NoError(t, err)
	assert.False(t, created)

	users, err := s.UserGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Phases"}, users)

	assert.ErrorIs(t, s.DeleteGroup(ctx, DefaultGroup), ErrProtectedGroup)
	require.NoError(t, s.DeleteGroup(ctx, "Phases"))
	names, err := s.GroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultGroup}, names)
}

func TestStore_StackSelectsActiveGroup(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), nil)

	active, err := s.ActiveGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultGroup, active)

	require.NoError(t, s.SetStack(ctx, GroupStack{{Group: "A", Enabled: false}, {Group: "B", Enabled: true}}))
	active, err = s.ActiveGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", active)
}

func resolverFixture(t *testing.T) (*Store, context.Context) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), nil)
	_, err := s.EnsureDefaultGroup(ctx)
	require.NoError(t, err)

	p1 := New("P1")
	p1.InProgressColor = models.RGBA{0, 0, 1, 1}
	require.NoError(t, s.SaveGroup(ctx, "G", []Profile{p1}))
	require.NoError(t, s.SetAssignment(ctx, 7, Assignment{Groups: []GroupChoice{{GroupName: "G", Enabled: true, SelectedValue: "P1"}}}))
	return s, ctx
}

func TestResolve_FallbackChain(t *testing.T) {
	s, ctx := resolverFixture(t)
	cat, err := s.Catalog(ctx)
	require.NoError(t, err)

	p, step := cat.Resolve(7, models.TypeConstruction, "G")
	assert.Equal(t, StepOverride, step)
	assert.Equal(t, "P1", p.Name)

	p, step = cat.Resolve(8, models.TypeConstruction, "G")
	assert.Equal(t, StepDefaultType, step)
	assert.Equal(t, models.TypeConstruction, p.Name)
	assert.Equal(t, models.RGBA{0, 1, 0, 1}, p.InProgressColor)

	p, step = cat.Resolve(8, "WEIRD", DefaultGroup)
	assert.Equal(t, StepDefaultNotDefined, step)
	assert.Equal(t, models.TypeNotDefined, p.Name)

	p, step = cat.Resolve(8, "", "G")
	assert.Equal(t, StepDefaultType, step)
	assert.Equal(t, models.TypeNotDefined, p.Name)
}

func TestResolve_GroupTypeAndDisabledOverride(t *testing.T) {
	s, ctx := resolverFixture(t)
	c := New(models.TypeConstruction)
	c.EndColor = models.RGBA{1, 0, 1, 1}
	require.NoError(t, s.SaveGroup(ctx, "G", []Profile{New("P1"), c}))
	require.NoError(t, s.SetAssignment(ctx, 7, Assignment{Groups: []GroupChoice{{GroupName: "G", Enabled: false, SelectedValue: "P1"}}}))

	cat, err := s.Catalog(ctx)
	require.NoError(t, err)
	p, step := cat.Resolve(7, models.TypeConstruction, "G")
	assert.Equal(t, StepGroupType, step)
	assert.Equal(t, models.RGBA{1, 0, 1, 1}, p.EndColor)
}

func TestResolve_BuiltinWhenNothingStored(t *testing.T) {
	cat := NewCatalog(nil, nil)
	p, step := cat.Resolve(1, models.TypeConstruction, "G")
	assert.Equal(t, StepBuiltin, step)
	assert.Equal(t, Fallback(), p)
	assert.Equal(t, models.RGBA{0, 1, 0, 1}, p.InProgressColor)
}

func TestResolve_Deterministic(t *testing.T) {
	s, ctx := resolverFixture(t)
	cat, err := s.Catalog(ctx)
	require.NoError(t, err)
	first, _ := cat.Resolve(7, models.TypeConstruction, "G")
	second, _ := cat.Resolve(7, models.TypeConstruction, "G")
	assert.Equal(t, first, second)

	// editing an unrelated group leaves the result unchanged
	require.NoError(t, s.SaveGroup(ctx, "Other", []Profile{New(models.TypeConstruction)}))
	cat, err = s.Catalog(ctx)
	require.NoError(t, err)
	third, _ := cat.Resolve(7, models.TypeConstruction, "G")
	assert.Equal(t, first, third)
}

func TestResolve_CustomGroupIgnoresDefaultOverride(t *testing.T) {
	s, ctx := resolverFixture(t)
	require.NoError(t, s.SetAssignment(ctx, 9, Assignment{Groups: []GroupChoice{{GroupName: DefaultGroup, Enabled: true, SelectedValue: models.TypeDemolition}}}))
	cat, err := s.Catalog(ctx)
	require.NoError(t, err)

	p, step := cat.Resolve(9, models.TypeConstruction, DefaultGroup)
	assert.Equal(t, StepOverride, step)
	assert.Equal(t, models.TypeDemolition, p.Name)

	p, step = cat.Resolve(9, models.TypeConstruction, "G")
	assert.Equal(t, StepDefaultType, step)
	assert.Equal(t, models.TypeConstruction, p.Name)
}

func TestResolve_DemolitionFallsBackToDefaultType(t *testing.T) {
	s, ctx := resolverFixture(t)
	require.NoError(t, s.SaveGroup(ctx, "CustomA", []Profile{New("Highlight")}))
	cat, err := s.Catalog(ctx)
	require.NoError(t, err)

	p, step := cat.Resolve(10, models.TypeDemolition, "CustomA")
	assert.Equal(t, StepDefaultType, step)
	assert.Equal(t, models.TypeDemolition, p.Name)
	assert.True(t, p.HideAtEnd)
}
