package space

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// Backend is the part of the backend client the space service uses.
type Backend interface {
	Resolve(ctx context.Context, op string, candidates []officeapi.Candidate, accept officeapi.Accept) (*officeapi.Result, error)
}

// Service lists, decorates and resolves spaces.
type Service struct {
	backend  Backend
	cache    ListCache
	cacheTTL time.Duration
	branded  bool
}

// NewService creates a new space service. cache may be nil.
func NewService(backend Backend, cache ListCache, cacheTTL time.Duration, branded bool) *Service {
	return &Service{
		backend:  backend,
		cache:    cache,
		cacheTTL: cacheTTL,
		branded:  branded,
	}
}

// List returns the decorated spaces matching f, with display names when branding is on.
func (s *Service) List(ctx context.Context, f Filter) ([]Space, error) {
	body, err := s.fetch(ctx, f)
	if err != nil {
		return nil, err
	}

	spaces, err := DecorateRaw(body)
	if err != nil {
		return nil, err
	}
	if s.branded {
		spaces = ApplyDisplayNames(spaces)
	}
	return spaces, nil
}

// ResolveID maps a map id or another human key to the numeric backend id.
// Integer keys are used as they are.
func (s *Service) ResolveID(ctx context.Context, key string) (int64, error) {
	if isIntLike(key) {
		id, _ := Match(nil, key)
		return id, nil
	}
	sp, err := s.Lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	return sp.ID, nil
}

// Lookup returns the decorated space a key refers to. The full list is
// decorated so the map ids agree with the unfiltered map.
//
// An integer key is matched on the backend id only. When the list has no such
// space, or no list route exists, the space comes back with just the id set
// and an empty Type.
func (s *Service) Lookup(ctx context.Context, key string) (Space, error) {
	intKey := isIntLike(key)
	var id int64
	if intKey {
		id, _ = Match(nil, key)
	}

	body, err := s.fetch(ctx, Filter{})
	if err != nil {
		switch {
		case intKey && errors.Is(err, officeapi.ErrNotFound):
			return Space{ID: id, RawID: strconv.FormatInt(id, 10)}, nil
		case errors.Is(err, officeapi.ErrNotFound):
			return Space{}, &UnresolvedError{Key: key}
		}
		return Space{}, err
	}

	spaces, err := DecorateRaw(body)
	if err != nil {
		return Space{}, &UnresolvedError{Key: key}
	}

	if intKey {
		for _, sp := range spaces {
			if sp.HasNumericID() && sp.ID == id {
				return sp, nil
			}
		}
		logger.LogDebug(ctx, "space id not in list", "space_id", id)
		return Space{ID: id, RawID: strconv.FormatInt(id, 10)}, nil
	}

	sp, ok := Find(spaces, key)
	if !ok {
		return Space{}, &UnresolvedError{Key: key}
	}
	logger.LogDebug(ctx, "space resolved", "key", key, "space_id", sp.ID, "ui_map_id", sp.UIMapID)
	return sp, nil
}

// Availability returns the backend availability document of a space on date.
func (s *Service) Availability(ctx context.Context, id int64, date string) (json.RawMessage, error) {
	q := officeapi.Query("date", date)
	res, err := s.backend.Resolve(ctx, "space availability", []officeapi.Candidate{
		officeapi.Get(fmt.Sprintf("/spaces/%d/availability%s", id, q)),
		officeapi.Get(fmt.Sprintf("/api/spaces/%d/availability%s", id, q)),
	}, officeapi.AcceptSuccess)
	if err != nil {
		return nil, fmt.Errorf("space availability: %w", err)
	}
	return res.Body, nil
}

func (s *Service) fetch(ctx context.Context, f Filter) ([]byte, error) {
	backendType := ""
	if f.Type != "" {
		backendType = BackendType(f.Type)
	}
	qs := officeapi.Query("type", backendType, "activity", f.Activity, "q", f.Query)
	key := "list" + qs

	if s.cache != nil {
		body, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.LogWarn(ctx, "space cache read failed", "error", err.Error())
		} else if body != nil {
			return body, nil
		}
	}

	res, err := s.backend.Resolve(ctx, "list spaces", []officeapi.Candidate{
		officeapi.Get("/spaces" + qs),
		officeapi.Get("/api/spaces" + qs),
	}, officeapi.AcceptList)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, key, res.Body, s.cacheTTL); err != nil {
			logger.LogWarn(ctx, "space cache write failed", "error", err.Error())
		}
	}
	return res.Body, nil
}
