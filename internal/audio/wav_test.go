package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBuildWAVHeader(t *testing.T) {
	pcm := make([]byte, 960)
	wav := BuildWAV(pcm, 48000, 1, 16)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad RIFF header: % x", wav[:12])
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 48000 {
		t.Fatalf("sample rate = %d, want 48000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data length = %d, want %d", got, len(pcm))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := samplesToPCM([]int16{0, 100, -100, 32767, -32768, 42})
	wav := BuildWAV(pcm, 24000, 1, 16)

	f, data, err := ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if f.SampleRate != 24000 || f.Channels != 1 || f.BitsPerSample != 16 {
		t.Fatalf("format = %+v", f)
	}
	if !bytes.Equal(data, pcm) {
		t.Fatal("data payload does not round-trip")
	}
}

func TestParseWAVSkipsUnknownChunks(t *testing.T) {
	pcm := samplesToPCM([]int16{1, 2, 3, 4})
	wav := BuildWAV(pcm, 16000, 1, 16)

	// Splice an unknown chunk between fmt and data, as some encoders do.
	extra := &bytes.Buffer{}
	extra.Write(wav[:36])
	extra.WriteString("LIST")
	binary.Write(extra, binary.LittleEndian, uint32(6))
	extra.Write([]byte("INFOxx"))
	extra.Write(wav[36:])

	f, data, err := ParseWAV(extra.Bytes())
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if f.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", f.SampleRate)
	}
	if !bytes.Equal(data, pcm) {
		t.Fatal("data payload lost around unknown chunk")
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	for _, blob := range [][]byte{
		nil,
		[]byte("not audio at all"),
		[]byte("RIFF\x00\x00\x00\x00AIFF"),
	} {
		if _, _, err := ParseWAV(blob); err == nil {
			t.Fatalf("ParseWAV(%q) accepted garbage", blob)
		}
	}
}

func TestParseWAVRejectsCompressed(t *testing.T) {
	wav := BuildWAV(make([]byte, 16), 8000, 1, 16)
	// Flip the audio format tag away from PCM.
	binary.LittleEndian.PutUint16(wav[20:22], 7)
	if _, _, err := ParseWAV(wav); err == nil {
		t.Fatal("ParseWAV accepted non-PCM encoding")
	}
}

func TestPCMSampleRoundTrip(t *testing.T) {
	samples := []int16{0, -1, 1, 32767, -32768, 12345}
	got := pcmToSamples(samplesToPCM(samples))
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}
