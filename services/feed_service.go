package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/techagentng/notify/db"
	"github.com/techagentng/notify/models"
)

const defaultFeedLimit = 25

// FeedService resolves the merged per-user notification feed: the caller's
// own undismissed user-scope notifications plus every visible broadcast they
// haven't dismissed.
type FeedService interface {
	ResolveFeed(userID uuid.UUID, limit int) ([]models.FeedItem, error)
}

type feedService struct {
	repo     db.NotificationRepository
	maxLimit int
}

func NewFeedService(repo db.NotificationRepository, maxLimit int) FeedService {
	if maxLimit <= 0 {
		maxLimit = 250
	}
	return &feedService{repo: repo, maxLimit: maxLimit}
}

func (s *feedService) ResolveFeed(userID uuid.UUID, limit int) ([]models.FeedItem, error) {
	// No caller, no feed. Not an error: unauthenticated page renders get an
	// empty bell.
	if userID == uuid.Nil {
		return []models.FeedItem{}, nil
	}

	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	own, err := s.repo.FeedUserScope(userID, limit)
	if err != nil {
		return nil, err
	}
	broadcast, err := s.repo.FeedBroadcast(userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.FeedItem, 0, len(own)+len(broadcast))
	for i := range own {
		items = append(items, userScopeItem(&own[i]))
	}
	for i := range broadcast {
		items = append(items, broadcastItem(&broadcast[i]))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func userScopeItem(n *models.Notification) models.FeedItem {
	return models.FeedItem{
		ID:        n.ID,
		Scope:     n.Scope,
		Type:      n.Category,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Payload,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
		IsRead:    n.ReadAt != nil,
	}
}

func broadcastItem(row *db.BroadcastFeedRow) models.FeedItem {
	return models.FeedItem{
		ID:        row.ID,
		Scope:     row.Scope,
		Type:      row.Category,
		Title:     row.Title,
		Message:   row.Message,
		Data:      row.Payload,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.UserReadAt,
		IsRead:    row.UserReadAt != nil,
	}
}
