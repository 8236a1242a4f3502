package hue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// RoomController drives the rooms configured on one bridge. The
// room→device→light graph is walked fresh on every query so the result always
// reflects the bridge's live configuration.
type RoomController struct {
	client BridgeClient
	logger *slog.Logger
}

// NewRoomController creates a controller over an authenticated bridge client.
func NewRoomController(client BridgeClient, logger *slog.Logger) *RoomController {
	return &RoomController{client: client, logger: logger}
}

// roomTopology is the resolved control surface of one room: its member light
// services and the grouped-light control point.
type roomTopology struct {
	id             string
	name           string
	lightIDs       []string
	groupedLightID string
}

// Rooms lists the rooms configured on the bridge.
func (c *RoomController) Rooms(ctx context.Context) ([]RoomSummary, error) {
	rooms, err := c.client.GetRooms(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, RoomSummary{ID: room.ID, Name: room.Metadata.Name})
	}
	return summaries, nil
}

// RoomState reads a room's full state: grouped light, every member light and
// the room's scenes, fetched concurrently.
func (c *RoomController) RoomState(ctx context.Context, roomID string) (RoomState, error) {
	topo, err := c.resolveRoom(ctx, roomID)
	if err != nil {
		return RoomState{}, err
	}
	return c.readState(ctx, topo)
}

// ApplyRoomState applies a partial room patch: the grouped-light write first,
// then per-light writes concurrently, then the scene recall. The resulting
// state is read back and returned.
func (c *RoomController) ApplyRoomState(ctx context.Context, roomID string, patch RoomStatePatch) (RoomState, error) {
	if patch.isEmpty() {
		return RoomState{}, fmt.Errorf("%w: empty room state patch", devices.ErrDeviceInvalidState)
	}

	topo, err := c.resolveRoom(ctx, roomID)
	if err != nil {
		return RoomState{}, err
	}

	memberLights := make(map[string]bool, len(topo.lightIDs))
	for _, id := range topo.lightIDs {
		memberLights[id] = true
	}
	for id := range patch.Lights {
		if !memberLights[id] {
			return RoomState{}, fmt.Errorf("%w: light %q is not a member of room %q",
				devices.ErrDeviceInvalidState, id, roomID)
		}
	}

	if patch.GroupedLight != nil {
		if err := c.client.UpdateGroupedLight(ctx, topo.groupedLightID, *patch.GroupedLight); err != nil {
			return RoomState{}, err
		}
	}

	if len(patch.Lights) > 0 {
		group, groupCtx := errgroup.WithContext(ctx)
		for id, lightPatch := range patch.Lights {
			id, lightPatch := id, lightPatch
			group.Go(func() error {
				return c.client.UpdateLight(groupCtx, id, lightPatch)
			})
		}
		if err := group.Wait(); err != nil {
			return RoomState{}, err
		}
	}

	if patch.RecallScene != nil {
		if err := c.recallRoomScene(ctx, topo, *patch.RecallScene); err != nil {
			return RoomState{}, err
		}
	}

	return c.readState(ctx, topo)
}

// resolveRoom walks room → device children → light services and picks out the
// room's grouped-light service.
func (c *RoomController) resolveRoom(ctx context.Context, roomID string) (roomTopology, error) {
	rooms, err := c.client.GetRooms(ctx)
	if err != nil {
		return roomTopology{}, err
	}

	var room *clipRoom
	for i := range rooms {
		if rooms[i].ID == roomID {
			room = &rooms[i]
			break
		}
	}
	if room == nil {
		return roomTopology{}, fmt.Errorf("%w: room %q not found on bridge", devices.ErrDeviceNotFound, roomID)
	}

	topo := roomTopology{id: room.ID, name: room.Metadata.Name}
	for _, service := range room.Services {
		if service.RType == "grouped_light" {
			topo.groupedLightID = service.RID
			break
		}
	}
	if topo.groupedLightID == "" {
		return roomTopology{}, fmt.Errorf("%w: room %q has no grouped light", devices.ErrDeviceNotFound, roomID)
	}

	for _, child := range room.Children {
		if child.RType != "device" {
			continue
		}
		device, err := c.client.GetDevice(ctx, child.RID)
		if err != nil {
			return roomTopology{}, err
		}
		for _, service := range device.Services {
			if service.RType == "light" {
				topo.lightIDs = append(topo.lightIDs, service.RID)
			}
		}
	}

	return topo, nil
}

// readState fans out the grouped-light read, one read per member light and
// the scene scan, all concurrently.
func (c *RoomController) readState(ctx context.Context, topo roomTopology) (RoomState, error) {
	state := RoomState{ID: topo.id, Name: topo.name}

	var mu sync.Mutex
	lights := make([]LightState, 0, len(topo.lightIDs))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		grouped, err := c.client.GetGroupedLight(groupCtx, topo.groupedLightID)
		if err != nil {
			return err
		}
		state.GroupedLight = GroupedLightState{ID: grouped.ID, On: grouped.On.On}
		if grouped.Dimming != nil {
			state.GroupedLight.Brightness = &grouped.Dimming.Brightness
		}
		return nil
	})

	for _, lightID := range topo.lightIDs {
		lightID := lightID
		group.Go(func() error {
			light, err := c.client.GetLight(groupCtx, lightID)
			if err != nil {
				return err
			}

			ls := LightState{ID: light.ID, Name: light.Metadata.Name, On: light.On.On}
			if light.Dimming != nil {
				ls.Brightness = &light.Dimming.Brightness
			}
			if light.ColorTemperature != nil {
				ls.Mirek = light.ColorTemperature.Mirek
			}
			if light.Color != nil {
				xy := light.Color.XY
				ls.XY = &xy
			}

			mu.Lock()
			lights = append(lights, ls)
			mu.Unlock()
			return nil
		})
	}

	group.Go(func() error {
		scenes, err := c.client.GetScenes(groupCtx)
		if err != nil {
			return err
		}
		for _, scene := range scenes {
			if scene.Group.RID != topo.id {
				continue
			}
			ss := SceneState{ID: scene.ID, Name: scene.Metadata.Name}
			if scene.Status != nil {
				ss.Active = scene.Status.Active != "inactive"
			}
			state.Scenes = append(state.Scenes, ss)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return RoomState{}, err
	}

	// Fan-out completion order is nondeterministic; present lights stably.
	sort.Slice(lights, func(i, j int) bool { return lights[i].ID < lights[j].ID })
	state.Lights = lights
	if state.Scenes == nil {
		state.Scenes = []SceneState{}
	}

	return state, nil
}

// recallRoomScene recalls a scene after checking it belongs to the room.
func (c *RoomController) recallRoomScene(ctx context.Context, topo roomTopology, sceneID string) error {
	scenes, err := c.client.GetScenes(ctx)
	if err != nil {
		return err
	}
	for _, scene := range scenes {
		if scene.ID == sceneID && scene.Group.RID == topo.id {
			return c.client.RecallScene(ctx, sceneID)
		}
	}
	return fmt.Errorf("%w: scene %q does not belong to room %q", devices.ErrDeviceInvalidState, sceneID, topo.id)
}
