package ui

import (
	"encoding/binary"
)

const (
	sampleRate = 48000
	beepHz     = 440
	beepVolume = 6000
)

// beepStream generates a square wave as 16-bit little-endian stereo
// frames, silent whenever the gate reports inactive.
type beepStream struct {
	active func() bool
	phase  int
}

func (s *beepStream) Read(p []byte) (n int, err error) {
	const period = sampleRate / beepHz

	active := s.active != nil && s.active()

	for n+3 < len(p) {
		var sample int16
		if active {
			sample = beepVolume
			if s.phase >= period/2 {
				sample = -beepVolume
			}
			s.phase = (s.phase + 1) % period
		}
		binary.LittleEndian.PutUint16(p[n:], uint16(sample))
		binary.LittleEndian.PutUint16(p[n+2:], uint16(sample))
		n += 4
	}

	return
}
