package builtin

import (
	"github.com/go-viper/mapstructure/v2"
)

// decodeConfig maps a descriptor's free-form config onto a typed tool
// configuration struct. Unknown keys are left alone so descriptors can
// carry extra metadata.
func decodeConfig(data map[string]any, cfg any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: false,
		Result:      cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
