package resolver

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxHeaderBytes bounds the JSON header read from a .safetensors file.
const maxHeaderBytes = 100 << 20

// TensorInfo is one entry of a safetensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// ReadSafetensorsHeader parses the tensor table at the start of a
// .safetensors file without touching tensor data. The layout is an 8 byte
// little-endian header length followed by a JSON object; the optional
// "__metadata__" entry is skipped.
func ReadSafetensorsHeader(path string) (map[string]TensorInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSafetensorsHeader(f)
}

func readSafetensorsHeader(r io.Reader) (map[string]TensorInfo, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("safetensors: read header length: %w", err)
	}
	if n == 0 || n > maxHeaderBytes {
		return nil, fmt.Errorf("safetensors: implausible header length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("safetensors: read header: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("safetensors: decode header: %w", err)
	}
	out := make(map[string]TensorInfo, len(raw))
	for k, v := range raw {
		if k == "__metadata__" {
			continue
		}
		var ti TensorInfo
		if err := json.Unmarshal(v, &ti); err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", k, err)
		}
		out[k] = ti
	}
	return out, nil
}
