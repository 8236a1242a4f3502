package aircon

// Device is the persisted record of a paired AC unit. Key and Token are the
// long-lived pairing credentials obtained once during discovery and reused
// for every later session; losing them means re-pairing.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IPAddress  string `json:"ip_address"`
	Port       int    `json:"port"`
	Identifier int64  `json:"identifier"`
	Key        string `json:"-"` // never serialised
	Token      string `json:"-"` // never serialised
}

// DiscoveryInfo describes a unit found on the network, before any trust is
// established.
type DiscoveryInfo struct {
	IPAddress  string `json:"ip_address"`
	Port       int    `json:"port"`
	Identifier int64  `json:"identifier"`
}

// PairingResult is the outcome of a single-unit discovery handshake: the
// descriptor plus the freshly issued long-lived credentials.
type PairingResult struct {
	IPAddress  string
	Port       int
	Identifier int64
	Key        string
	Token      string
}

// OperationalMode selects the unit's operating mode. Values are the vendor
// protocol's own.
type OperationalMode int

const (
	ModeAuto OperationalMode = 1
	ModeCool OperationalMode = 2
	ModeDry  OperationalMode = 3
	ModeHeat OperationalMode = 4
	ModeFan  OperationalMode = 5
)

// FanSpeed selects the fan speed. Values are the vendor protocol's own.
type FanSpeed int

const (
	FanSilent FanSpeed = 20
	FanLow    FanSpeed = 40
	FanMedium FanSpeed = 60
	FanHigh   FanSpeed = 80
	FanMax    FanSpeed = 100
	FanAuto   FanSpeed = 102
)

// SwingMode selects louvre swing. Values are the vendor protocol's own.
type SwingMode int

const (
	SwingOff        SwingMode = 0x0
	SwingHorizontal SwingMode = 0x3
	SwingVertical   SwingMode = 0xC
	SwingBoth       SwingMode = 0xF
)

// Rate selects the power-limit gear. Values are the vendor protocol's own.
type Rate int

const (
	RateGear50 Rate = 50
	RateGear75 Rate = 75
	RateOff    Rate = 100
)

// Target temperature bounds accepted by the units, degrees Celsius, inclusive.
const (
	MinTargetTemperature = 16.0
	MaxTargetTemperature = 30.0
)

// State is a full snapshot of a unit's state. The temperature readings are
// read-only; everything else is writable through a patch.
type State struct {
	Power             bool            `json:"power"`
	TargetTemperature float64         `json:"target_temperature"`
	OperationalMode   OperationalMode `json:"operational_mode"`
	FanSpeed          FanSpeed        `json:"fan_speed"`
	SwingMode         SwingMode       `json:"swing_mode"`
	EcoMode           bool            `json:"eco_mode"`
	TurboMode         bool            `json:"turbo_mode"`
	Rate              Rate            `json:"rate"`
	Fahrenheit        bool            `json:"fahrenheit"`
	DisplayOn         bool            `json:"display_on"`

	// Read only.
	IndoorTemperature  float64 `json:"indoor_temperature"`
	OutdoorTemperature float64 `json:"outdoor_temperature"`
}

// StatePatch is a partial desired state. Nil fields are left unchanged.
type StatePatch struct {
	Power             *bool            `json:"power,omitempty"`
	TargetTemperature *float64         `json:"target_temperature,omitempty"`
	OperationalMode   *OperationalMode `json:"operational_mode,omitempty"`
	FanSpeed          *FanSpeed        `json:"fan_speed,omitempty"`
	SwingMode         *SwingMode       `json:"swing_mode,omitempty"`
	EcoMode           *bool            `json:"eco_mode,omitempty"`
	TurboMode         *bool            `json:"turbo_mode,omitempty"`
	Rate              *Rate            `json:"rate,omitempty"`
	Fahrenheit        *bool            `json:"fahrenheit,omitempty"`
	DisplayOn         *bool            `json:"display_on,omitempty"`

	// Write only: sound the confirmation beep when applying.
	Beep *bool `json:"beep,omitempty"`
}

// merge returns current with every non-nil patch field applied.
// DisplayOn is handled separately (edge-triggered, see Handle.ApplyState) and
// Beep is write-only, so neither is merged here.
func (p StatePatch) merge(current State) State {
	target := current
	if p.Power != nil {
		target.Power = *p.Power
	}
	if p.TargetTemperature != nil {
		target.TargetTemperature = *p.TargetTemperature
	}
	if p.OperationalMode != nil {
		target.OperationalMode = *p.OperationalMode
	}
	if p.FanSpeed != nil {
		target.FanSpeed = *p.FanSpeed
	}
	if p.SwingMode != nil {
		target.SwingMode = *p.SwingMode
	}
	if p.EcoMode != nil {
		target.EcoMode = *p.EcoMode
	}
	if p.TurboMode != nil {
		target.TurboMode = *p.TurboMode
	}
	if p.Rate != nil {
		target.Rate = *p.Rate
	}
	if p.Fahrenheit != nil {
		target.Fahrenheit = *p.Fahrenheit
	}
	return target
}
