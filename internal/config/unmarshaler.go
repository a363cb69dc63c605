package config

import (
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

// decoderConfig decodes koanf maps into result. Strings go through the
// target's UnmarshalText, so source kinds and durations are validated while
// decoding; bare numbers for a Duration are seconds.
func decoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		TagName:          "koanf",
		Result:           result,
	}
}

func secondsToDurationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeFor[config.Duration]() {
		return data, nil
	}

	var secs float64

	switch v := data.(type) {
	case int:
		secs = float64(v)
	case int64:
		secs = float64(v)
	case float64:
		secs = v
	default:
		return data, nil
	}

	if secs < 0 {
		return nil, config.ErrNegativeDuration
	}

	return config.Duration(time.Duration(secs * float64(time.Second))), nil
}
