package config

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes that config files may spell either as a plain
// integer or as a human readable string such as "64MiB" or "1.5 GB".
type ByteSize uint64

// ParseByteSize parses s with humanize.ParseBytes
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// exact reports whether the human readable form parses back to b
func (b ByteSize) exact() bool {
	parsed, err := ParseByteSize(b.String())
	return err == nil && parsed == b
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	if !b.exact() {
		return json.Marshal(uint64(b))
	}
	return json.Marshal(b.String())
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("byte size must be a number or string: %w", err)
	}
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b ByteSize) MarshalYAML() (any, error) {
	if !b.exact() {
		return uint64(b), nil
	}
	return b.String(), nil
}

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	var n uint64
	if err := node.Decode(&n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	parsed, err := ParseByteSize(node.Value)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
