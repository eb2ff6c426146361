// Package audience resolves an event's declarative targeting rule into a
// deduplicated, engagement-ranked recipient list.
package audience

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

type Resolver struct {
	users     repository.UserRepository
	analytics repository.AnalyticsRepository
	logger    *logger.Logger

	nowFn func() time.Time
}

func NewResolver(users repository.UserRepository, analytics repository.AnalyticsRepository, log *logger.Logger) *Resolver {
	return &Resolver{
		users:     users,
		analytics: analytics,
		logger:    log,
		nowFn:     time.Now,
	}
}

// Resolve evaluates the event's targeting rule against the tenant's user
// population. sendToAll bypasses every other filter. Otherwise the union of
// the set filters is taken, deduplicated by user id; a rule that sets no
// filter at all falls back to the full population. The result is sorted
// descending by historical engagement score, unknown users scoring 0, with
// stable order on ties. An empty population resolves to an empty list.
func (r *Resolver) Resolve(ctx context.Context, event *model.Event) ([]*model.User, error) {
	rules, err := event.Rules()
	if err != nil {
		return nil, fmt.Errorf("invalid targeting rules for event %s: %w", event.ID, err)
	}

	users, err := r.collect(ctx, event, rules)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []*model.User{}, nil
	}

	scores, err := r.analytics.GetEngagementScores(ctx, event.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load engagement scores for business %s: %w", event.BusinessID, err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return scores[users[i].ID] > scores[users[j].ID]
	})
	return users, nil
}

func (r *Resolver) collect(ctx context.Context, event *model.Event, rules model.TargetRules) ([]*model.User, error) {
	if rules.SendToAll {
		return r.users.GetByBusiness(ctx, event.BusinessID)
	}

	var (
		result    []*model.User
		seen      = make(map[uuid.UUID]struct{})
		filterSet bool
	)
	add := func(users []*model.User) {
		for _, u := range users {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			result = append(result, u)
		}
	}

	if rules.JoinedWithinDays != nil {
		filterSet = true
		since := r.nowFn().AddDate(0, 0, -*rules.JoinedWithinDays)
		recent, err := r.users.GetJoinedAfter(ctx, event.BusinessID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to get recently joined users: %w", err)
		}
		add(recent)
	}

	if len(rules.UserIDs) > 0 {
		filterSet = true
		explicit, err := r.users.GetByIDs(ctx, rules.UserIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get explicitly targeted users: %w", err)
		}
		add(explicit)
	}

	if len(rules.GroupIDs) > 0 {
		filterSet = true
		members, err := r.users.GetByGroupIDs(ctx, rules.GroupIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get group members: %w", err)
		}
		add(members)
	}

	// A rule with no filter set at all targets the full population. A rule
	// whose filters matched nobody stays empty.
	if !filterSet {
		return r.users.GetByBusiness(ctx, event.BusinessID)
	}
	return result, nil
}
