package hue

// Bridge is the persisted record of a paired Hue bridge. Username and
// ClientKey are the bridge-issued long-lived credentials from the
// button-press handshake; the Identifier (bridge serial) doubles as the TLS
// verification name.
type Bridge struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IPAddress  string `json:"ip_address"`
	Port       int    `json:"port"`
	Identifier string `json:"identifier"`
	Username   string `json:"-"` // never serialised
	ClientKey  string `json:"-"` // never serialised
}

// DiscoveryInfo describes a bridge found on the network, before pairing.
type DiscoveryInfo struct {
	Identifier string `json:"identifier"`
	IPAddress  string `json:"ip_address"`
	Port       int    `json:"port"`
}

// RoomSummary identifies one room configured on a bridge.
type RoomSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// XY is a colour point in CIE xy space. Conversion to and from other colour
// spaces is the caller's concern; the bridge accepts xy natively.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LightState is the observed state of one member light.
type LightState struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	On         bool     `json:"on"`
	Brightness *float64 `json:"brightness,omitempty"`
	Mirek      *int     `json:"mirek,omitempty"`
	XY         *XY      `json:"xy,omitempty"`
}

// GroupedLightState is the room's aggregate control point.
type GroupedLightState struct {
	ID         string   `json:"id"`
	On         bool     `json:"on"`
	Brightness *float64 `json:"brightness,omitempty"`
}

// SceneState reports one scene belonging to the room and whether it is
// currently active.
type SceneState struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// RoomState is the full observed state of a room: the grouped control point,
// every member light, and the room's scenes.
type RoomState struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	GroupedLight GroupedLightState `json:"grouped_light"`
	Lights       []LightState      `json:"lights"`
	Scenes       []SceneState      `json:"scenes"`
}

// LightPatch is a partial desired state for one light. Nil fields are left
// unchanged.
type LightPatch struct {
	On         *bool    `json:"on,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Mirek      *int     `json:"mirek,omitempty"`
	XY         *XY      `json:"xy,omitempty"`
}

// GroupedLightPatch is a partial desired state for the room's grouped light.
type GroupedLightPatch struct {
	On         *bool    `json:"on,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
}

// RoomStatePatch is a partial desired state for a whole room. All present
// parts are applied in one request: grouped light first, then per-light
// patches, then the scene recall.
type RoomStatePatch struct {
	GroupedLight *GroupedLightPatch    `json:"grouped_light,omitempty"`
	Lights       map[string]LightPatch `json:"lights,omitempty"`
	RecallScene  *string               `json:"recall_scene,omitempty"`
}

func (p RoomStatePatch) isEmpty() bool {
	return p.GroupedLight == nil && len(p.Lights) == 0 && p.RecallScene == nil
}
