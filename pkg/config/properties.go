package config

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// propertiesFormats are the file extensions read as Java properties
var propertiesFormats = []string{"properties", "props", "prop"}

// propertiesCodec reads properties files as a flat key space. Dotted keys
// stay single keys so logger names survive unsplit.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(b)
	if err != nil {
		return err
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		v[key] = value
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		if _, _, err := p.Set(k, fmt.Sprint(v[k])); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// codecs adds properties support to viper's built-in formats
func codecs() *viper.DefaultCodecRegistry {
	r := viper.NewCodecRegistry()
	for _, format := range propertiesFormats {
		_ = r.RegisterCodec(format, propertiesCodec{})
	}
	return r
}
