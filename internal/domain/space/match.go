package space

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrUnresolved is matched when no space corresponds to a key.
var ErrUnresolved = errors.New("space not resolved")

// UnresolvedError reports a key that matched no space.
type UnresolvedError struct {
	Key string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("Unable to resolve space_id for %q. Please ensure the space exists in backend.", e.Key)
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

func (e *UnresolvedError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

func (e *UnresolvedError) ErrorCode() string {
	return "SPACE_UNRESOLVED"
}

// Match returns the numeric backend id for key among decorated spaces.
// Integer keys are returned as is.
func Match(spaces []Space, key string) (int64, bool) {
	if isIntLike(key) {
		n, _ := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		return n, true
	}
	s, ok := Find(spaces, key)
	if !ok {
		return 0, false
	}
	return s.ID, true
}

// Find returns the space a map id or another human key refers to.
//
// The rules below are tried in order; within a rule the first space with a
// numeric id wins.
func Find(spaces []Space, key string) (Space, bool) {
	keyCI := ci(key)
	if keyCI == "" {
		return Space{}, false
	}

	rules := []func(Space) bool{
		func(s Space) bool { return s.UIMapID == key },
		func(s Space) bool { return matchesField(s, keyCI) },
		func(s Space) bool { return strings.HasPrefix(strings.ToLower(s.UIMapID), keyCI) },
		func(s Space) bool { return strings.Contains(strings.ToLower(s.UIMapID), keyCI) },
		func(s Space) bool { return ci(s.UIType) == keyCI },
		func(s Space) bool { return ci(s.Type) == keyCI },
	}

	for _, rule := range rules {
		for _, s := range spaces {
			if s.HasNumericID() && rule(s) {
				return s, true
			}
		}
	}
	return Space{}, false
}

func matchesField(s Space, keyCI string) bool {
	for _, field := range []string{s.RawID, s.Name, s.OriginalName, s.Code, s.Slug, s.Key} {
		if field != "" && ci(field) == keyCI {
			return true
		}
	}
	return false
}
