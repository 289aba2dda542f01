package space

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// Backend space types.
const (
	TypeDesk         = "desk"
	TypeOffice       = "office"
	TypeSmallRoom    = "small_room"
	TypeTrainingRoom = "training_room"
	TypeMeetingRoom  = "meeting_room"
	TypeWellbeing    = "wellbeing_zone"
	TypeBeerPoint    = "beer_point"
	TypeHuddle       = "huddle"
)

// UI categories used by the map and the filters.
const (
	UITypeDesk      = "desk"
	UITypeSmallRoom = "small_meeting_space"
	UITypeLargeRoom = "large_meeting_room"
	UITypeHuddle    = "huddle"
	UITypeWellbeing = "wellbeing"
	UITypeBeerPoint = "beerpoint"
	UITypeOffice    = "office"
)

// MapPrefixes are the element id prefixes of the office map.
var MapPrefixes = []string{
	UITypeDesk,
	UITypeSmallRoom,
	UITypeLargeRoom,
	UITypeHuddle,
	UITypeWellbeing,
	UITypeBeerPoint,
}

var backendToUI = map[string]string{
	TypeDesk:         UITypeDesk,
	TypeSmallRoom:    UITypeSmallRoom,
	TypeTrainingRoom: UITypeLargeRoom,
	TypeMeetingRoom:  UITypeLargeRoom,
	TypeWellbeing:    UITypeWellbeing,
	TypeBeerPoint:    UITypeBeerPoint,
	TypeOffice:       UITypeOffice,
	TypeHuddle:       UITypeHuddle,
}

var uiToBackend = map[string]string{
	UITypeDesk:      TypeDesk,
	UITypeSmallRoom: TypeSmallRoom,
	UITypeHuddle:    TypeSmallRoom,
	UITypeLargeRoom: TypeTrainingRoom,
	UITypeWellbeing: TypeWellbeing,
	UITypeBeerPoint: TypeBeerPoint,
	UITypeOffice:    TypeOffice,
}

// UIType maps a backend type to its UI category. Unknown types map to themselves.
func UIType(backendType string) string {
	bt := ci(backendType)
	if ui, ok := backendToUI[bt]; ok {
		return ui
	}
	return bt
}

// BackendType maps a UI filter value to the backend type. Unknown values pass through.
func BackendType(uiType string) string {
	if bt, ok := uiToBackend[ci(uiType)]; ok {
		return bt
	}
	return uiType
}

// Space is a backend space record plus its UI decoration.
type Space struct {
	// ID is the numeric backend id; zero when the backend id is not numeric.
	ID int64
	// RawID is the backend id as received, from id, space_id or spaceId.
	RawID            string
	Name             string
	Type             string
	Capacity         *int
	Activity         string
	RequiresApproval bool
	IsBookable       *bool
	Description      string
	Code             string
	Slug             string
	Key              string

	UIType       string
	UIMapID      string
	UILabel      string
	OriginalName string

	// raw keeps every field received from the backend.
	raw map[string]json.RawMessage
}

// HasNumericID reports whether the backend id is an integer.
func (s Space) HasNumericID() bool {
	return s.RawID != "" && isIntLike(s.RawID)
}

func (s *Space) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = Space{raw: fields}

	for _, key := range []string{"id", "space_id", "spaceId"} {
		if v, ok := officeapi.Scalar(fields[key]); ok && v != "" {
			s.RawID = strings.TrimSpace(v)
			break
		}
	}
	if isIntLike(s.RawID) {
		s.ID, _ = strconv.ParseInt(s.RawID, 10, 64)
	}

	s.Name, _ = officeapi.Scalar(fields["name"])
	s.Type, _ = officeapi.Scalar(fields["type"])
	s.Activity, _ = officeapi.Scalar(fields["activity"])
	s.Description, _ = officeapi.Scalar(fields["description"])
	s.Code, _ = officeapi.Scalar(fields["code"])
	s.Slug, _ = officeapi.Scalar(fields["slug"])
	s.Key, _ = officeapi.Scalar(fields["key"])
	s.UIType, _ = officeapi.Scalar(fields["ui_type"])
	s.UIMapID, _ = officeapi.Scalar(fields["ui_map_id"])
	s.UILabel, _ = officeapi.Scalar(fields["ui_label"])
	s.OriginalName, _ = officeapi.Scalar(fields["original_name"])

	if v, ok := officeapi.Scalar(fields["capacity"]); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.Capacity = &n
		}
	}
	if v, ok := officeapi.Scalar(fields["requires_approval"]); ok {
		s.RequiresApproval, _ = strconv.ParseBool(v)
	}
	if v, ok := officeapi.Scalar(fields["is_bookable"]); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.IsBookable = &b
		}
	}
	return nil
}

// MarshalJSON writes the backend fields unchanged plus the decoration.
func (s Space) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.raw)+8)
	for k, v := range s.raw {
		out[k] = v
	}

	switch {
	case s.HasNumericID():
		out["id"] = s.ID
	case s.RawID != "":
		out["id"] = s.RawID
	}
	out["name"] = s.Name
	out["type"] = s.Type
	if s.Capacity != nil {
		out["capacity"] = *s.Capacity
	}
	if s.Activity != "" {
		out["activity"] = s.Activity
	}
	out["requires_approval"] = s.RequiresApproval
	if s.IsBookable != nil {
		out["is_bookable"] = *s.IsBookable
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	out["ui_type"] = s.UIType
	out["ui_map_id"] = s.UIMapID
	if s.UILabel != "" {
		out["ui_label"] = s.UILabel
	}
	if s.OriginalName != "" {
		out["original_name"] = s.OriginalName
	}
	return json.Marshal(out)
}

func isIntLike(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

func ci(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
