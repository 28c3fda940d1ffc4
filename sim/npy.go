package sim

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// npy.go implements just enough of the NumPy .npy/.npz container format to
// round-trip the mask artifacts spec.md §6 documents: int32 arrays
// ("shape", "idx0".."idx3") and a float32 array ("values", "mask_fraction").
// No ecosystem library in the retrieval pack reads this format (see
// DESIGN.md); archive/zip plus this header codec is the direct
// translation of ".npz is a zip of .npy members".

const npyMagic = "\x93NUMPY"

// npyWriteInt32 encodes a 1-D int32 array as a version-1.0 .npy file.
func npyWriteInt32(w io.Writer, data []int32) error {
	return npyWrite(w, "<i4", len(data), func(buf *bytes.Buffer) error {
		return binary.Write(buf, binary.LittleEndian, data)
	})
}

// npyWriteFloat32 encodes a 1-D float32 array as a version-1.0 .npy file.
func npyWriteFloat32(w io.Writer, data []float32) error {
	return npyWrite(w, "<f4", len(data), func(buf *bytes.Buffer) error {
		return binary.Write(buf, binary.LittleEndian, data)
	})
}

func npyWrite(w io.Writer, descr string, n int, encodeBody func(*bytes.Buffer) error) error {
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d,), }", descr, n)
	// Pad so magic(6) + version(2) + headerLen(2) + header is a multiple of 64, header ends in \n.
	const prefixLen = 6 + 2 + 2
	total := prefixLen + len(header) + 1
	pad := (64 - total%64) % 64
	header = header + strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.WriteByte(1) // major version
	buf.WriteByte(0) // minor version
	if len(header) > 0xFFFF {
		return fmt.Errorf("npy header too long: %d bytes", len(header))
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	buf.WriteString(header)
	if err := encodeBody(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// npyReadRaw parses a .npy file's header and returns its dtype descriptor,
// declared element count, and the raw little-endian payload bytes.
func npyReadRaw(r io.Reader) (descr string, count int, payload []byte, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, nil, err
	}
	if len(data) < 10 || string(data[:6]) != npyMagic {
		return "", 0, nil, fmt.Errorf("not a valid .npy file (bad magic)")
	}
	major := data[6]
	var headerLen int
	var headerStart int
	if major == 1 {
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		headerStart = 10
	} else {
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		headerStart = 12
	}
	if headerStart+headerLen > len(data) {
		return "", 0, nil, fmt.Errorf("truncated .npy header")
	}
	header := string(data[headerStart : headerStart+headerLen])
	descr, count, err = parseNpyHeaderDict(header)
	if err != nil {
		return "", 0, nil, err
	}
	payload = data[headerStart+headerLen:]
	return descr, count, payload, nil
}

// parseNpyHeaderDict extracts the 'descr' and 'shape' fields from a Python
// dict literal like "{'descr': '<i4', 'fortran_order': False, 'shape': (7,), }".
// Only 1-D shapes are supported, matching every array this format stores.
func parseNpyHeaderDict(header string) (descr string, count int, err error) {
	descr, err = extractQuoted(header, "'descr':")
	if err != nil {
		return "", 0, err
	}
	shapeIdx := strings.Index(header, "'shape':")
	if shapeIdx < 0 {
		return "", 0, fmt.Errorf("npy header missing 'shape'")
	}
	rest := header[shapeIdx+len("'shape':"):]
	open := strings.Index(rest, "(")
	close := strings.Index(rest, ")")
	if open < 0 || close < 0 || close < open {
		return "", 0, fmt.Errorf("npy header malformed shape tuple")
	}
	inner := strings.TrimSpace(rest[open+1 : close])
	inner = strings.TrimSuffix(inner, ",")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		count = 1 // scalar
		return descr, count, nil
	}
	count, err = strconv.Atoi(inner)
	if err != nil {
		return "", 0, fmt.Errorf("npy header non-1D shape unsupported: %q", rest[open:close+1])
	}
	return descr, count, nil
}

func extractQuoted(s, key string) (string, error) {
	idx := strings.Index(s, key)
	if idx < 0 {
		return "", fmt.Errorf("npy header missing %q", key)
	}
	rest := s[idx+len(key):]
	first := strings.Index(rest, "'")
	if first < 0 {
		return "", fmt.Errorf("npy header malformed %q value", key)
	}
	rest = rest[first+1:]
	second := strings.Index(rest, "'")
	if second < 0 {
		return "", fmt.Errorf("npy header malformed %q value", key)
	}
	return rest[:second], nil
}

func decodeInt32Payload(payload []byte, count int) ([]int32, error) {
	if len(payload) < count*4 {
		return nil, fmt.Errorf("npy payload too short for %d int32 elements", count)
	}
	out := make([]int32, count)
	for i := 0; i < count; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return out, nil
}

func decodeFloat32Payload(payload []byte, count int) ([]float32, error) {
	raw, err := decodeInt32Payload(payload, count)
	if err != nil {
		return nil, err
	}
	out := make([]float32, count)
	for i, v := range raw {
		out[i] = math.Float32frombits(uint32(v))
	}
	return out, nil
}

// npzWriter builds a .npz archive (a plain zip of named .npy members).
type npzWriter struct {
	zw *zip.Writer
}

func newNpzWriter(w io.Writer) *npzWriter {
	return &npzWriter{zw: zip.NewWriter(w)}
}

func (n *npzWriter) writeInt32(name string, data []int32) error {
	f, err := n.zw.Create(name + ".npy")
	if err != nil {
		return err
	}
	return npyWriteInt32(f, data)
}

func (n *npzWriter) writeFloat32(name string, data []float32) error {
	f, err := n.zw.Create(name + ".npy")
	if err != nil {
		return err
	}
	return npyWriteFloat32(f, data)
}

func (n *npzWriter) Close() error {
	return n.zw.Close()
}

// npzMember reads a single named array from an already-open zip archive.
func npzMember(zr *zip.Reader, name string) (descr string, count int, payload []byte, err error) {
	for _, f := range zr.File {
		if f.Name == name+".npy" {
			rc, err := f.Open()
			if err != nil {
				return "", 0, nil, err
			}
			defer rc.Close()
			return npyReadRaw(rc)
		}
	}
	return "", 0, nil, fmt.Errorf("npz archive missing member %q", name)
}
