package space

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// ErrMalformedList is returned when a spaces body is neither a list nor a list envelope.
var ErrMalformedList = errors.New("spaces response is not a list")

var deskNumber = regexp.MustCompile(`(?i)desk\s+(\d+)`)

// groupedTypes are the backend types whose map ids depend on position within the type.
var groupedTypes = []string{TypeDesk, TypeSmallRoom, TypeHuddle}

// Decorate returns copies of spaces with UIType and UIMapID set, in input order.
//
// The result depends only on the content of the list: members of a grouped
// type are numbered by natural order of their backend name, ties broken by id.
func Decorate(spaces []Space) []Space {
	out := make([]Space, len(spaces))
	copy(out, spaces)

	index := groupIndex(out)
	for i := range out {
		s := &out[i]
		s.UIType = UIType(s.Type)
		s.UIMapID = mapID(s, index[i])
	}
	return out
}

// DecorateRaw unwraps a backend spaces body and decorates it.
func DecorateRaw(body []byte) ([]Space, error) {
	items, ok := officeapi.UnwrapList(body)
	if !ok {
		return nil, ErrMalformedList
	}
	spaces, err := officeapi.DecodeEach[Space](items)
	if err != nil {
		return nil, fmt.Errorf("decode spaces: %w", err)
	}
	return Decorate(spaces), nil
}

func groupIndex(spaces []Space) map[int]int {
	index := make(map[int]int)
	for _, t := range groupedTypes {
		var members []int
		for i, s := range spaces {
			if ci(s.Type) == t {
				members = append(members, i)
			}
		}
		sort.SliceStable(members, func(x, y int) bool {
			a, b := spaces[members[x]], spaces[members[y]]
			if c := NaturalCompare(backendName(a), backendName(b)); c != 0 {
				return c < 0
			}
			return compareIDs(a, b) < 0
		})
		for pos, i := range members {
			index[i] = pos + 1
		}
	}
	return index
}

func mapID(s *Space, index int) string {
	name := backendName(*s)

	switch s.UIType {
	case UITypeDesk:
		if m := deskNumber.FindStringSubmatch(name); m != nil {
			if n := strings.TrimLeft(m[1], "0"); n != "" {
				return UITypeDesk + n
			}
		}
		return fmt.Sprintf("%s%d", UITypeDesk, atLeastOne(index))
	case UITypeSmallRoom:
		return fmt.Sprintf("%s%d", UITypeSmallRoom, atLeastOne(index))
	case UITypeHuddle:
		return fmt.Sprintf("%s%d", UITypeHuddle, atLeastOne(index))
	case UITypeLargeRoom:
		switch ci(name) {
		case "training room 2":
			return UITypeLargeRoom + "2"
		case "training rooms (both)":
			return UITypeLargeRoom + "3"
		default:
			return UITypeLargeRoom + "1"
		}
	case UITypeWellbeing:
		if strings.Contains(ci(name), "bookster") {
			return UITypeWellbeing + "2"
		}
		return UITypeWellbeing + "1"
	case UITypeBeerPoint:
		return UITypeBeerPoint + "1"
	default:
		return s.RawID
	}
}

// backendName is the name the backend sent, even after display names were applied.
func backendName(s Space) string {
	if s.OriginalName != "" {
		return s.OriginalName
	}
	return s.Name
}

func compareIDs(a, b Space) int {
	if a.HasNumericID() && b.HasNumericID() {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	}
	return NaturalCompare(a.RawID, b.RawID)
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
