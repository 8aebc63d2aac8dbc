package media

import "encoding/binary"

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// MuLawDownsample converts a 16 kHz PCM16 frame into 8 kHz G.711 mu-law
// for the PCMU track on the peer connection. Decimation by dropping every
// other sample is fine here; the AI endpoint gets the full-rate PCM.
func MuLawDownsample(pcm []byte) []byte {
	samples := len(pcm) / 2
	out := make([]byte, samples/2)
	for i := 0; i < samples; i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i/2] = linearToMuLaw(s)
	}
	return out
}

func linearToMuLaw(sample int16) byte {
	sign := byte(0)
	s := int32(sample)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exponent := byte(7)
	for mask := int32(0x4000); (s&mask) == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((s >> (exponent + 3)) & 0x0F)
	return ^(sign | (exponent << 4) | mantissa)
}
