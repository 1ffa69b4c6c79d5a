package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
)

// Codec encodes trace metadata on disk.
type Codec interface {
	Name() string
	// Ext is the file extension of encoded blobs, including the dot.
	Ext() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// JSON writes indented JSON, the format hosting adapters exchange.
type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Ext() string  { return ".json" }

func (JSON) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (JSON) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// Msgpack writes MessagePack, a compact local format.
type Msgpack struct{}

func (Msgpack) Name() string { return "msgpack" }
func (Msgpack) Ext() string  { return ".mp" }

func (Msgpack) Encode(w io.Writer, v any) error {
	return msgpack.NewEncoder(w).Encode(v)
}

func (Msgpack) Decode(r io.Reader, v any) error {
	return msgpack.NewDecoder(r).Decode(v)
}

// CodecFor returns the codec called name.
func CodecFor(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	default:
		return nil, caeerrors.ConfigurationError("storage.trace_format",
			fmt.Sprintf("unknown trace format %q", name), name)
	}
}
