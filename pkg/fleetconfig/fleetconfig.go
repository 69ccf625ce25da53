// Package fleetconfig loads the static description of a fleet — its
// transports and the actuators reachable on each — from an INI file using
// gopkg.in/ini.v1: sections are matched by name with a regexp
// (`[transport:NAME]`, `[actuator:ID]`), and each match is parsed into one
// typed record.
package fleetconfig

import (
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/ini.v1"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/actuator"
	"github.com/samsamfire/canservo/pkg/codec"
)

var (
	transportSection = regexp.MustCompile(`^transport:(.+)$`)
	actuatorSection   = regexp.MustCompile(`^actuator:([0-9]+)$`)
)

// TransportSpec describes one [transport:NAME] section.
type TransportSpec struct {
	Name string
	Kind string // "serialframed", "nativecan", or "stub"
	Port string
	BaudRate int
}

// ActuatorSpec describes one [actuator:ID] section.
type ActuatorSpec struct {
	ID        uint8
	Transport string
	Family    codec.Family
	Config    actuator.Config
}

// Fleet is the parsed result of one fleet file.
type Fleet struct {
	Transports []TransportSpec
	Actuators  []ActuatorSpec
}

// Load parses an INI fleet description from filePath.
func Load(filePath string) (*Fleet, error) {
	data, err := ini.Load(filePath)
	if err != nil {
		return nil, canservo.NewError(canservo.KindConfig, "fleetconfig.Load", err)
	}
	return parse(data)
}

// LoadBytes parses an INI fleet description already in memory, mainly for
// tests.
func LoadBytes(data []byte) (*Fleet, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, canservo.NewError(canservo.KindConfig, "fleetconfig.LoadBytes", err)
	}
	return parse(cfg)
}

func parse(cfg *ini.File) (*Fleet, error) {
	fleet := &Fleet{}
	for _, section := range cfg.Sections() {
		name := section.Name()

		if m := transportSection.FindStringSubmatch(name); m != nil {
			spec := TransportSpec{
				Name:     m[1],
				Kind:     section.Key("kind").MustString("stub"),
				Port:     section.Key("port").String(),
				BaudRate: section.Key("baud_rate").MustInt(921600),
			}
			fleet.Transports = append(fleet.Transports, spec)
			continue
		}

		if m := actuatorSection.FindStringSubmatch(name); m != nil {
			id, err := strconv.ParseUint(m[1], 10, 8)
			if err != nil {
				return nil, canservo.NewError(canservo.KindConfig, "fleetconfig.parse",
					fmt.Errorf("bad actuator id %q: %w", m[1], err))
			}
			familyName := section.Key("family").MustString("F00")
			family, ok := codec.ParseFamily(familyName)
			if !ok {
				return nil, canservo.NewError(canservo.KindConfig, "fleetconfig.parse",
					fmt.Errorf("unknown family %q for actuator %d", familyName, id))
			}
			spec := ActuatorSpec{
				ID:        uint8(id),
				Transport: section.Key("transport").String(),
				Family:    family,
				Config: actuator.Config{
					Family:         family,
					MaxAngleChange: section.Key("max_angle_change").MustFloat64(0),
					Limits: actuator.Limits{
						MaxTorqueNm:     section.Key("max_torque_nm").MustFloat64(0),
						MaxVelocityRadS: section.Key("max_velocity_rads").MustFloat64(0),
						MaxCurrentA:     section.Key("max_current_a").MustFloat64(0),
						Kp:              section.Key("max_kp").MustFloat64(0),
						Kd:              section.Key("max_kd").MustFloat64(0),
					},
				},
			}
			fleet.Actuators = append(fleet.Actuators, spec)
		}
	}
	return fleet, nil
}
