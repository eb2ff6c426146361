package audience

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

type fakeUserRepo struct {
	all    []*model.User
	recent []*model.User
	byID   map[uuid.UUID]*model.User
	groups map[uuid.UUID][]*model.User
}

func (f *fakeUserRepo) GetByBusiness(_ context.Context, _ uuid.UUID) ([]*model.User, error) {
	return f.all, nil
}

func (f *fakeUserRepo) GetJoinedAfter(_ context.Context, _ uuid.UUID, _ time.Time) ([]*model.User, error) {
	return f.recent, nil
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*model.User, error) {
	var users []*model.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) GetByGroupIDs(_ context.Context, groupIDs []uuid.UUID) ([]*model.User, error) {
	var users []*model.User
	for _, gid := range groupIDs {
		users = append(users, f.groups[gid]...)
	}
	return users, nil
}

func (f *fakeUserRepo) ListGroups(_ context.Context, businessID uuid.UUID) ([]*model.UserGroup, error) {
	var groups []*model.UserGroup
	for gid := range f.groups {
		groups = append(groups, &model.UserGroup{ID: gid, BusinessID: businessID})
	}
	return groups, nil
}

type fakeAnalyticsRepo struct {
	scores map[uuid.UUID]float64
}

func (f *fakeAnalyticsRepo) Create(_ context.Context, _ *model.EventAnalytics) error { return nil }

func (f *fakeAnalyticsRepo) GetByBusiness(_ context.Context, _ uuid.UUID) ([]*model.EventAnalytics, error) {
	return nil, nil
}

func (f *fakeAnalyticsRepo) GetEngagementScores(_ context.Context, _ uuid.UUID) (map[uuid.UUID]float64, error) {
	if f.scores == nil {
		return map[uuid.UUID]float64{}, nil
	}
	return f.scores, nil
}

func newUser(name string) *model.User {
	return &model.User{ID: uuid.New(), Name: name, PhoneNumber: "+1555" + name}
}

func eventWithRules(t *testing.T, rules model.TargetRules) *model.Event {
	t.Helper()
	doc, err := json.Marshal(rules)
	require.NoError(t, err)
	return &model.Event{ID: uuid.New(), BusinessID: uuid.New(), Title: "launch", TargetRules: doc}
}

func testLogger() *logger.Logger {
	return logger.NewLogger(nil)
}

func userIDs(users []*model.User) []uuid.UUID {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func TestResolveSendToAllIgnoresOtherFilters(t *testing.T) {
	a, b, c := newUser("a"), newUser("b"), newUser("c")
	repo := &fakeUserRepo{
		all:  []*model.User{a, b, c},
		byID: map[uuid.UUID]*model.User{a.ID: a},
	}
	r := NewResolver(repo, &fakeAnalyticsRepo{}, testLogger())

	// Populated-but-irrelevant explicit ids must be ignored.
	ev := eventWithRules(t, model.TargetRules{SendToAll: true, UserIDs: []uuid.UUID{a.ID}})

	users, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.ElementsMatch(t, userIDs([]*model.User{a, b, c}), userIDs(users))
}

func TestResolveUnionDeduplicates(t *testing.T) {
	a, b, c := newUser("a"), newUser("b"), newUser("c")
	groupID := uuid.New()
	repo := &fakeUserRepo{
		all:    []*model.User{a, b, c},
		recent: []*model.User{a, b},
		byID:   map[uuid.UUID]*model.User{b.ID: b},
		groups: map[uuid.UUID][]*model.User{groupID: {b, c}},
	}
	r := NewResolver(repo, &fakeAnalyticsRepo{}, testLogger())

	days := 30
	ev := eventWithRules(t, model.TargetRules{
		JoinedWithinDays: &days,
		UserIDs:          []uuid.UUID{b.ID},
		GroupIDs:         []uuid.UUID{groupID},
	})

	users, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.ElementsMatch(t, userIDs([]*model.User{a, b, c}), userIDs(users))
}

func TestResolveNoFilterFallsBackToAll(t *testing.T) {
	a, b := newUser("a"), newUser("b")
	repo := &fakeUserRepo{all: []*model.User{a, b}}
	r := NewResolver(repo, &fakeAnalyticsRepo{}, testLogger())

	ev := eventWithRules(t, model.TargetRules{})

	users, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestResolveFilterMatchingNobodyStaysEmpty(t *testing.T) {
	a := newUser("a")
	repo := &fakeUserRepo{
		all:  []*model.User{a},
		byID: map[uuid.UUID]*model.User{},
	}
	r := NewResolver(repo, &fakeAnalyticsRepo{}, testLogger())

	ev := eventWithRules(t, model.TargetRules{UserIDs: []uuid.UUID{uuid.New()}})

	users, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResolveOrdersByEngagementScore(t *testing.T) {
	a, b, c := newUser("a"), newUser("b"), newUser("c")
	repo := &fakeUserRepo{all: []*model.User{a, b, c}}
	analytics := &fakeAnalyticsRepo{scores: map[uuid.UUID]float64{
		b.ID: 90,
		c.ID: 40,
		// a is unknown, scores 0
	}}
	r := NewResolver(repo, analytics, testLogger())

	ev := eventWithRules(t, model.TargetRules{SendToAll: true})

	users, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, b.ID, users[0].ID)
	assert.Equal(t, c.ID, users[1].ID)
	assert.Equal(t, a.ID, users[2].ID)
}

func TestResolveIsIdempotent(t *testing.T) {
	a, b := newUser("a"), newUser("b")
	groupID := uuid.New()
	repo := &fakeUserRepo{
		all:    []*model.User{a, b},
		groups: map[uuid.UUID][]*model.User{groupID: {a, b}},
	}
	r := NewResolver(repo, &fakeAnalyticsRepo{scores: map[uuid.UUID]float64{a.ID: 10, b.ID: 20}}, testLogger())

	ev := eventWithRules(t, model.TargetRules{GroupIDs: []uuid.UUID{groupID}})

	first, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, userIDs(first), userIDs(second))
}

func TestResolveEmptyPopulation(t *testing.T) {
	r := NewResolver(&fakeUserRepo{}, &fakeAnalyticsRepo{}, testLogger())

	ev := eventWithRules(t, model.TargetRules{SendToAll: true})

	users, err := r.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResolveMalformedRules(t *testing.T) {
	r := NewResolver(&fakeUserRepo{}, &fakeAnalyticsRepo{}, testLogger())

	ev := &model.Event{ID: uuid.New(), BusinessID: uuid.New(), TargetRules: json.RawMessage(`{not json`)}

	_, err := r.Resolve(context.Background(), ev)
	assert.Error(t, err)
}
