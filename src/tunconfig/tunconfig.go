// Package tunconfig provides optional overrides for tunnel defaults,
// decoded the same lenient way the teacher decodes its NodeConfig from
// a loosely-typed map (src/mobile/mobile.go's mapstructure.Decode
// call), and optionally loaded from an on-disk HJSON/JSON file the way
// cmd/yggdrasil/main.go's -useconffile does.
package tunconfig

import (
	"os"

	"github.com/hjson/hjson-go"
	"github.com/mitchellh/mapstructure"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Overrides holds optional values that take precedence over
// per-platform defaults when present.
type Overrides struct {
	IfName               string `mapstructure:"ifname"`
	IfMTU                int    `mapstructure:"ifmtu"`
	EgressPollIntervalMS int    `mapstructure:"egresspollintervalms"`
}

// Decode converts a loosely-typed map (e.g. parsed JSON/HJSON) into
// Overrides, tolerating unknown and missing keys.
func Decode(raw map[string]interface{}) (Overrides, error) {
	var o Overrides
	if err := mapstructure.Decode(raw, &o); err != nil {
		return Overrides{}, tunerr.Wrap(tunerr.InvalidArgument, err)
	}
	return o, nil
}

// LoadFile reads an HJSON or JSON overrides file from disk. HJSON is a
// superset of JSON, so a plain .json file decodes the same way.
func LoadFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, tunerr.Wrap(tunerr.IoError, err)
	}
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return Overrides{}, tunerr.Wrap(tunerr.InvalidArgument, err)
	}
	return Decode(raw)
}
