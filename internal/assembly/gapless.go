package assembly

import (
	"bytes"
	"encoding/binary"
)

// gapless is what the Xing/Info header of a LAME or libavcodec encoded MP3
// says about its audio frames and the encoder delay and padding around them.
// ffmpeg drops the delay and padding when it demuxes the file.
type gapless struct {
	frames          int
	samplesPerFrame int
	startPad        int
	endPad          int
}

// samples is the playable sample count once delay and padding are dropped.
func (g gapless) samples() int {
	return g.frames*g.samplesPerFrame - g.startPad - g.endPad
}

// readGapless finds the Info tag in the first audio frame of data. ok is
// false when the file has no frame count or no encoder delay fields.
func readGapless(data []byte) (g gapless, ok bool) {
	p := skipID3v2(data)
	if len(data) < p+4 || data[p] != 0xFF || data[p+1]&0xE0 != 0xE0 {
		return gapless{}, false
	}

	mpeg1 := (data[p+1]>>3)&0x3 == 3
	mono := (data[p+3]>>6)&0x3 == 3
	side := 17
	switch {
	case mpeg1 && !mono:
		side = 32
	case !mpeg1 && mono:
		side = 9
	}
	g.samplesPerFrame = 576
	if mpeg1 {
		g.samplesPerFrame = 1152
	}

	x := p + 4 + side
	if len(data) < x+8 {
		return gapless{}, false
	}
	if tag := data[x : x+4]; !bytes.Equal(tag, []byte("Info")) && !bytes.Equal(tag, []byte("Xing")) {
		return gapless{}, false
	}
	flags := binary.BigEndian.Uint32(data[x+4:])
	off := x + 8
	if flags&0x1 == 0 {
		return gapless{}, false
	}
	if len(data) < off+4 {
		return gapless{}, false
	}
	g.frames = int(binary.BigEndian.Uint32(data[off:]))
	off += 4
	if flags&0x2 != 0 {
		off += 4 // byte count
	}
	if flags&0x4 != 0 {
		off += 100 // seek table
	}
	if flags&0x8 != 0 {
		off += 4 // quality
	}

	// Encoder extension: 9-byte version string, then the 12-bit delay and
	// padding at byte 21.
	if len(data) < off+24 {
		return gapless{}, false
	}
	switch string(data[off : off+4]) {
	case "LAME", "Lavf", "Lavc":
	default:
		return gapless{}, false
	}
	d := data[off+21 : off+24]
	g.startPad = int(d[0])<<4 | int(d[1])>>4
	g.endPad = int(d[1]&0x0F)<<8 | int(d[2])
	return g, g.frames > 0 && g.samples() > 0
}

func skipID3v2(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	n := 10 + size
	if data[5]&0x10 != 0 {
		n += 10 // footer
	}
	return n
}
