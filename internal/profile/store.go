package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/jengzang/bim4d-backend-go/internal/contracts"
)

// Keys in the document's key-value store
const (
	GroupsKey      = "BIM_AnimationColorSchemesSets"
	AssignmentsKey = "BIM_TaskColorTypeAssignments"
	StackKey       = "BIM_AnimationGroupStack"
)

// ErrProtectedGroup is returned when deleting DEFAULT
var ErrProtectedGroup = errors.New("group cannot be deleted")

// KV is a string key-value store persisted with the document
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type groupDoc struct {
	ColorTypes []json.RawMessage `json:"ColorTypes"`
}

// Store reads and writes profile groups, per-task assignments and the
// animation group stack. Malformed stored JSON reads as empty.
type Store struct {
	kv  KV
	log *slog.Logger
}

// NewStore creates a store over kv
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, log: logger.With("component", "profile_store")}
}

func (s *Store) readJSON(ctx context.Context, key string, v any) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.log.Warn("malformed stored JSON treated as empty", "key", key, "error", err)
	}
	return nil
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) rawGroups(ctx context.Context) (map[string]groupDoc, error) {
	groups := map[string]groupDoc{}
	if err := s.readJSON(ctx, GroupsKey, &groups); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = map[string]groupDoc{}
	}
	return groups, nil
}

// decodeGroup validates each stored profile and drops invalid ones
func (s *Store) decodeGroup(name string, doc groupDoc) []Profile {
	out := make([]Profile, 0, len(doc.ColorTypes))
	for _, raw := range doc.ColorTypes {
		if err := contracts.ValidateJSON(contracts.Profile, raw); err != nil {
			s.log.Warn("dropping invalid profile", "group", name, "error", err)
			continue
		}
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			s.log.Warn("dropping undecodable profile", "group", name, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

// GroupNames returns all stored group names, sorted
func (s *Store) GroupNames(ctx context.Context) ([]string, error) {
	groups, err := s.rawGroups(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// UserGroups returns every group other than DEFAULT
func (s *Store) UserGroups(ctx context.Context) ([]string, error) {
	names, err := s.GroupNames(ctx)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if n != DefaultGroup {
			out = append(out, n)
		}
	}
	return out, nil
}

// Groups returns every group's valid profiles
func (s *Store) Groups(ctx context.Context) (map[string][]Profile, error) {
	groups, err := s.rawGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Profile, len(groups))
	for name, doc := range groups {
		out[name] = s.decodeGroup(name, doc)
	}
	return out, nil
}

// GroupProfiles returns the valid profiles of one group keyed by name.
// A missing group yields an empty map.
func (s *Store) GroupProfiles(ctx context.Context, group string) (map[string]Profile, error) {
	groups, err := s.rawGroups(ctx)
	if err != nil {
		return nil, err
	}
	return index(s.decodeGroup(group, groups[group])), nil
}

// SaveGroup replaces a group's profiles after validating each
func (s *Store) SaveGroup(ctx context.Context, group string, profiles []Profile) error {
	if group == "" {
		return fmt.Errorf("%w: empty group name", ErrInvalidProfile)
	}
	doc := groupDoc{ColorTypes: make([]json.RawMessage, 0, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("group %s: %w", group, err)
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return err
		}
		doc.ColorTypes = append(doc.ColorTypes, raw)
	}
	groups, err := s.rawGroups(ctx)
	if err != nil {
		return err
	}
	groups[group] = doc
	return s.writeJSON(ctx, GroupsKey, groups)
}

// DeleteGroup removes a user group
func (s *Store) DeleteGroup(ctx context.Context, group string) error {
	if group == DefaultGroup {
		return ErrProtectedGroup
	}
	groups, err := s.rawGroups(ctx)
	if err != nil {
		return err
	}
	delete(groups, group)
	return s.writeJSON(ctx, GroupsKey, groups)
}

// EnsureDefaultGroup creates DEFAULT from the built-in palette when absent
// and tops up predefined types missing from it. Existing profiles are never
// overwritten. Returns how many profiles were added.
func (s *Store) EnsureDefaultGroup(ctx context.Context) (int, error) {
	palette, err := DefaultPalette()
	if err != nil {
		return 0, err
	}
	groups, err := s.rawGroups(ctx)
	if err != nil {
		return 0, err
	}
	existing := s.decodeGroup(DefaultGroup, groups[DefaultGroup])
	have := index(existing)
	added := 0
	for _, p := range palette {
		if _, ok := have[p.Name]; !ok {
			existing = append(existing, p)
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.SaveGroup(ctx, DefaultGroup, existing); err != nil {
		return 0, err
	}
	s.log.Info("seeded DEFAULT profile group", "added", added)
	return added, nil
}

// EnsureProfile adds a profile with default settings to group when the group
// has none of that name
func (s *Store) EnsureProfile(ctx context.Context, group, name string) (bool, error) {
	groups, err := s.Groups(ctx)
	if err != nil {
		return false, err
	}
	profiles := groups[group]
	for _, p := range profiles {
		if p.Name == name {
			return false, nil
		}
	}
	return true, s.SaveGroup(ctx, group, append(profiles, New(name)))
}

// Assignments returns every per-task override keyed by task id
func (s *Store) Assignments(ctx context.Context) (map[int64]Assignment, error) {
	raw := map[string]Assignment{}
	if err := s.readJSON(ctx, AssignmentsKey, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64]Assignment, len(raw))
	for k, a := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			s.log.Warn("skipping assignment with bad task id", "key", k)
			continue
		}
		out[id] = a
	}
	return out, nil
}

// SetAssignment stores the override of one task
func (s *Store) SetAssignment(ctx context.Context, taskID int64, a Assignment) error {
	raw := map[string]Assignment{}
	if err := s.readJSON(ctx, AssignmentsKey, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]Assignment{}
	}
	raw[strconv.FormatInt(taskID, 10)] = a
	return s.writeJSON(ctx, AssignmentsKey, raw)
}

// Stack returns the animation group stack
func (s *Store) Stack(ctx context.Context) (GroupStack, error) {
	var stack GroupStack
	if err := s.readJSON(ctx, StackKey, &stack); err != nil {
		return nil, err
	}
	return stack, nil
}

// SetStack replaces the animation group stack
func (s *Store) SetStack(ctx context.Context, stack GroupStack) error {
	return s.writeJSON(ctx, StackKey, stack)
}

// Catalog loads groups and assignments once for repeated resolution
func (s *Store) Catalog(ctx context.Context) (*Catalog, error) {
	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.Assignments(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(groups, assignments), nil
}

func index(profiles []Profile) map[string]Profile {
	out := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		out[p.Name] = p
	}
	return out
}

// ActiveGroup returns the group the animation stack currently selects
func (s *Store) ActiveGroup(ctx context.Context) (string, error) {
	stack, err := s.Stack(ctx)
	if err != nil {
		return "", err
	}
	return stack.Active(), nil
}
