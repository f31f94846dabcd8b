package service

import (
	"context"
	"fmt"

	"github.com/jengzang/bim4d-backend-go/internal/profile"
)

// ProfileGroup is one named group of appearance profiles
type ProfileGroup struct {
	Name     string            `json:"name"`
	Profiles []profile.Profile `json:"profiles"`
}

// ProfileGroups lists every group, seeding DEFAULT first
func (s *SequenceService) ProfileGroups(ctx context.Context) ([]ProfileGroup, error) {
	if err := s.applier.Prepare(ctx); err != nil {
		return nil, err
	}
	names, err := s.store.GroupNames(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.Groups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileGroup, 0, len(names))
	for _, n := range names {
		out = append(out, ProfileGroup{Name: n, Profiles: groups[n]})
	}
	return out, nil
}

// SaveProfileGroup replaces a group's profiles
func (s *SequenceService) SaveProfileGroup(ctx context.Context, group ProfileGroup) error {
	if err := s.store.SaveGroup(ctx, group.Name, group.Profiles); err != nil {
		return fmt.Errorf("failed to save group %s: %w", group.Name, err)
	}
	return nil
}

// DeleteProfileGroup removes a user group
func (s *SequenceService) DeleteProfileGroup(ctx context.Context, name string) error {
	return s.store.DeleteGroup(ctx, name)
}

// EnsureProfile adds a default-initialized profile to a group if missing
func (s *SequenceService) EnsureProfile(ctx context.Context, group, name string) (bool, error) {
	if group == "" || name == "" {
		return false, fmt.Errorf("%w: group and profile name are required", ErrInvalidRequest)
	}
	return s.store.EnsureProfile(ctx, group, name)
}

// Assignments returns every per-task override
func (s *SequenceService) Assignments(ctx context.Context) (map[int64]profile.Assignment, error) {
	return s.store.Assignments(ctx)
}

// SetAssignment stores a task's per-group override
func (s *SequenceService) SetAssignment(ctx context.Context, taskID int64, a profile.Assignment) error {
	return s.store.SetAssignment(ctx, taskID, a)
}

// GroupStack returns the animation group stack and the group it selects
func (s *SequenceService) GroupStack(ctx context.Context) (profile.GroupStack, string, error) {
	stack, err := s.store.Stack(ctx)
	if err != nil {
		return nil, "", err
	}
	return stack, stack.Active(), nil
}

// SetGroupStack replaces the animation group stack
func (s *SequenceService) SetGroupStack(ctx context.Context, stack profile.GroupStack) error {
	return s.store.SetStack(ctx, stack)
}

// Resolution is the profile chosen for a task and how it was found
type Resolution struct {
	Group   string          `json:"group"`
	Step    string          `json:"step"`
	Profile profile.Profile `json:"profile"`
}

// ResolveProfile runs the fallback chain for a task and predefined type
func (s *SequenceService) ResolveProfile(ctx context.Context, taskID int64, predefinedType, group string) (*Resolution, error) {
	if err := s.applier.Prepare(ctx); err != nil {
		return nil, err
	}
	group, catalog, _, err := s.appearance(ctx, group)
	if err != nil {
		return nil, err
	}
	p, step := catalog.Resolve(taskID, predefinedType, group)
	return &Resolution{Group: group, Step: step.String(), Profile: p}, nil
}
