package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVFormat describes the PCM layout of a RIFF/WAVE blob.
type WAVFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// BuildWAV wraps raw PCM16LE in a RIFF/WAVE header and returns the
// concatenated bytes (header + data).
func BuildWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataLen := uint32(len(pcm))
	riffSize := uint32(4 + (8 + 16) + (8 + dataLen))

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)
	return buf.Bytes()
}

// ParseWAV reads the header of a PCM RIFF/WAVE blob and returns its format
// and the raw sample data. Only uncompressed PCM is understood; that is all
// the TTS service produces.
func ParseWAV(wav []byte) (WAVFormat, []byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return WAVFormat{}, nil, fmt.Errorf("not a RIFF/WAVE blob")
	}
	var f WAVFormat
	var data []byte
	seenFmt := false
	for off := 12; off+8 <= len(wav); {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if body+size > len(wav) {
			size = len(wav) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return WAVFormat{}, nil, fmt.Errorf("short fmt chunk")
			}
			if audioFormat := binary.LittleEndian.Uint16(wav[body : body+2]); audioFormat != 1 {
				return WAVFormat{}, nil, fmt.Errorf("unsupported wav encoding %d", audioFormat)
			}
			f.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			seenFmt = true
		case "data":
			data = wav[body : body+size]
		}
		// Chunks are word-aligned.
		if size%2 == 1 {
			size++
		}
		off = body + size
	}
	if !seenFmt || data == nil {
		return WAVFormat{}, nil, fmt.Errorf("missing fmt or data chunk")
	}
	return f, data, nil
}

// pcmToSamples reinterprets little-endian 16-bit PCM bytes as samples. An
// odd trailing byte is ignored.
func pcmToSamples(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i : 2*i+2]))
	}
	return out
}

// samplesToPCM serializes samples as little-endian 16-bit PCM bytes.
func samplesToPCM(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:2*i+2], uint16(s))
	}
	return out
}
