package space

import (
	"fmt"
	"strconv"
	"strings"
)

var beerNames = []string{
	"Coors Light", "Miller Genuine Draft", "Blue Moon", "Staropramen", "Carling",
	"Bergenbier", "Madri Excepcional", "Leinenkugel's", "Pravha", "Jelen",
}

var juiceNames = []string{
	"Clearly Canadian", "ZICO Coconut Water", "MadVine", "Aspire Healthy Energy",
	"Huzzah! Probiotic Soda", "Lemon Perfect", "Crispin Cider",
}

var drinkVariants = []string{"", " Draft", " Zero", " Lime", " Gold", " Ice", " Light"}

// ApplyDisplayNames returns copies of decorated spaces where small rooms and
// huddles carry branded display names. The backend name moves to
// OriginalName; ids and map ids are left alone.
func ApplyDisplayNames(spaces []Space) []Space {
	out := make([]Space, len(spaces))
	copy(out, spaces)

	needed := 0
	for _, s := range out {
		if s.UIType == UITypeSmallRoom {
			if n := mapIndex(s.UIMapID, UITypeSmallRoom); n > needed {
				needed = n
			}
		}
	}
	rooms := UniqueNames(beerNames, needed)

	for i := range out {
		s := &out[i]
		var display string
		switch s.UIType {
		case UITypeSmallRoom:
			display = rooms[mapIndex(s.UIMapID, UITypeSmallRoom)-1]
		case UITypeHuddle:
			n := mapIndex(s.UIMapID, UITypeHuddle)
			display = juiceNames[(n-1)%len(juiceNames)]
		default:
			continue
		}
		if s.OriginalName == "" {
			s.OriginalName = s.Name
		}
		s.Name = display
		s.UILabel = display
	}
	return out
}

// UniqueNames builds needed distinct names from base, cycling through the
// drink variants and numbering once they run out.
func UniqueNames(base []string, needed int) []string {
	if len(base) == 0 || needed <= 0 {
		return nil
	}

	out := make([]string, 0, needed)
	seen := make(map[string]bool, needed)
	for _, variant := range drinkVariants {
		for _, b := range base {
			name := strings.TrimSpace(b + variant)
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
			if len(out) >= needed {
				return out
			}
		}
	}
	for len(out) < needed {
		out = append(out, fmt.Sprintf("%s %d", base[len(out)%len(base)], len(out)+1))
	}
	return out
}

// mapIndex extracts N from "<prefix>N", defaulting to 1.
func mapIndex(mapID, prefix string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(mapID, prefix))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
