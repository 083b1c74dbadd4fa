package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"voicekit/internal/application"
)

var ErrUnsupportedWAV = errors.New("unsupported wav: only 16-bit PCM is supported")

// EncodeWAV wraps mono 16-bit samples in a RIFF/WAVE container.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// DecodeWAV reads a 16-bit PCM WAV file. Unknown chunks are skipped.
func DecodeWAV(data []byte) ([]int16, application.AudioFormat, error) {
	var format application.AudioFormat

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, format, fmt.Errorf("not a RIFF/WAVE file")
	}

	var samples []int16
	haveFormat := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, format, fmt.Errorf("short fmt chunk: %d bytes", size)
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			format.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			format.BitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			if audioFormat != 1 || format.BitDepth != 16 {
				return nil, format, ErrUnsupportedWAV
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, format, fmt.Errorf("data chunk before fmt chunk")
			}
			samples = make([]int16, size/2)
			if err := binary.Read(bytes.NewReader(data[body:body+size-size%2]), binary.LittleEndian, samples); err != nil {
				return nil, format, fmt.Errorf("reading samples: %w", err)
			}
		}

		pos = body + size + size%2
	}

	if !haveFormat {
		return nil, format, fmt.Errorf("missing fmt chunk")
	}
	return samples, format, nil
}
