// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Format names a configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Codec encodes and decodes one format.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

type yamlCodec struct{}

func (yamlCodec) Encode(v any) ([]byte, error)    { return yaml.Marshal(v) }
func (yamlCodec) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }

type tomlCodec struct{}

func (tomlCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (tomlCodec) Decode(data []byte, v any) error { return toml.Unmarshal(data, v) }

type jsonCodec struct{}

func (jsonCodec) Encode(v any) ([]byte, error)    { return json.MarshalIndent(v, "", "  ") }
func (jsonCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

var codecs = map[Format]Codec{
	FormatYAML: yamlCodec{},
	FormatTOML: tomlCodec{},
	FormatJSON: jsonCodec{},
}

var extensionFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".toml": FormatTOML,
}

// CodecFor returns the codec of format.
func CodecFor(format Format) (Codec, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return c, nil
}

// DetectFormat derives the format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}

	return "", fmt.Errorf("%w: cannot detect format from extension %q", ErrUnknownFormat, ext)
}
