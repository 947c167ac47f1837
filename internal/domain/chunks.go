package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Chunk is the chunking policy for one axis. The zero value means the axis
// is not chunked (read as one block).
type Chunk struct {
	Size int
	Auto bool
}

// ChunkAuto lets the reader pick a block size from a memory budget.
var ChunkAuto = Chunk{Auto: true}

// ChunkSize returns a fixed-size policy.
func ChunkSize(n int) Chunk { return Chunk{Size: n} }

// IsNone reports whether the axis is left whole.
func (c Chunk) IsNone() bool { return !c.Auto && c.Size <= 0 }

func (c Chunk) String() string {
	switch {
	case c.Auto:
		return "auto"
	case c.Size > 0:
		return strconv.Itoa(c.Size)
	default:
		return "none"
	}
}

// ParseChunk accepts "", "none", "auto", or a positive integer.
func ParseChunk(s string) (Chunk, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "none", "null":
		return Chunk{}, nil
	case "auto":
		return ChunkAuto, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return Chunk{}, fmt.Errorf("invalid chunk size %q", s)
	}
	return ChunkSize(n), nil
}

// MarshalJSON encodes none as null, auto as "auto", sizes as numbers.
func (c Chunk) MarshalJSON() ([]byte, error) {
	switch {
	case c.Auto:
		return []byte(`"auto"`), nil
	case c.Size > 0:
		return []byte(strconv.Itoa(c.Size)), nil
	default:
		return []byte("null"), nil
	}
}

func (c *Chunk) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseChunk(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	parsed, err := ParseChunk(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ChunkSpec maps axis names to chunk policies. Recognized axes are "time"
// and "node"; axes not present are not chunked.
type ChunkSpec map[string]Chunk

// DefaultChunks keeps time whole and chunks nodes automatically, which suits
// per-node parallel processing.
func DefaultChunks() ChunkSpec {
	return ChunkSpec{AxisTime: {}, AxisNode: ChunkAuto}
}

// Check rejects axes the reader does not know.
func (s ChunkSpec) Check() error {
	for axis := range s {
		if axis != AxisTime && axis != AxisNode {
			return fmt.Errorf("unknown chunk axis %q", axis)
		}
	}
	return nil
}
