package audio

import (
	"encoding/binary"
	"time"
)

const (
	// SampleRate of generated clips
	SampleRate = 44100
	// Channels - mono
	Channels = 1
	// BitsPerSample - 16 bit PCM
	BitsPerSample = 16

	bytesPerSample = BitsPerSample / 8
	headerLen      = 44
)

// Silence returns a valid PCM WAV clip of zero-valued samples
// RIFF header + fmt chunk + data chunk sized to the duration
func Silence(d time.Duration) []byte {
	samples := int(SampleRate * d.Milliseconds() / 1000)
	dataLen := samples * bytesPerSample * Channels
	res := make([]byte, headerLen+dataLen)

	copy(res[0:], "RIFF")
	binary.LittleEndian.PutUint32(res[4:], uint32(36+dataLen))
	copy(res[8:], "WAVE")
	copy(res[12:], "fmt ")
	binary.LittleEndian.PutUint32(res[16:], 16)
	binary.LittleEndian.PutUint16(res[20:], 1) // PCM
	binary.LittleEndian.PutUint16(res[22:], Channels)
	binary.LittleEndian.PutUint32(res[24:], SampleRate)
	binary.LittleEndian.PutUint32(res[28:], SampleRate*bytesPerSample*Channels)
	binary.LittleEndian.PutUint16(res[32:], bytesPerSample*Channels)
	binary.LittleEndian.PutUint16(res[34:], BitsPerSample)
	copy(res[36:], "data")
	binary.LittleEndian.PutUint32(res[40:], uint32(dataLen))
	// samples stay zero
	return res
}
