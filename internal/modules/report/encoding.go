package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is a wire encoding for reports.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// NegotiateFormat picks msgpack when the Accept header asks for it and JSON
// otherwise.
func NegotiateFormat(accept string) Format {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch strings.ToLower(mediaType) {
		case contentTypeMsgpack, "application/x-msgpack", "application/vnd.msgpack":
			return FormatMsgpack
		}
	}
	return FormatJSON
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return contentTypeMsgpack
	}
	return contentTypeJSON
}

// Encode writes v to w in the given format.
func Encode(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("failed to encode msgpack: %w", err)
		}
	default:
		if err := json.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	}
	return nil
}
