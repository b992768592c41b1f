// Package common provides common utilities for CD-ROM time-code arithmetic.
// This file contains MSF (Minutes:Seconds:Frames) conversion and the packed
// decimal (BCD) encoding used by disc tables of contents.
package common

import (
	"fmt"
	"strconv"
	"strings"
)

// CD clock constants
const (
	FramesPerSecond  = 75
	SecondsPerMinute = 60
	FramesPerMinute  = FramesPerSecond * SecondsPerMinute

	// LeadInSectors is the two second gap between disc time 00:00:00 and
	// the first user sector.
	LeadInSectors = 2 * FramesPerSecond

	// MaxBCDMinutes is the largest minute value a single BCD byte can hold
	MaxBCDMinutes = 99

	// MaxSectors is the largest sector count expressible as a BCD time code
	MaxSectors = (MaxBCDMinutes+1)*FramesPerMinute - 1
)

// MSF represents a CD time code. One frame equals one sector.
type MSF struct {
	Minutes uint8
	Seconds uint8
	Frames  uint8
}

// NewMSF creates an MSF value, validating the clock ranges
func NewMSF(minutes, seconds, frames int) (MSF, error) {
	if minutes < 0 || minutes > MaxBCDMinutes {
		return MSF{}, fmt.Errorf("minutes %d out of range (0-%d)", minutes, MaxBCDMinutes)
	}
	if seconds < 0 || seconds >= SecondsPerMinute {
		return MSF{}, fmt.Errorf("seconds %d out of range (0-%d)", seconds, SecondsPerMinute-1)
	}
	if frames < 0 || frames >= FramesPerSecond {
		return MSF{}, fmt.Errorf("frames %d out of range (0-%d)", frames, FramesPerSecond-1)
	}
	return MSF{Minutes: uint8(minutes), Seconds: uint8(seconds), Frames: uint8(frames)}, nil
}

// ParseMSF parses a decimal "MM:SS:FF" time code
func ParseMSF(s string) (MSF, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return MSF{}, fmt.Errorf("invalid MSF format: %q", s)
	}

	var values [3]int
	for i, part := range parts {
		if part == "" || len(part) > 3 {
			return MSF{}, fmt.Errorf("invalid MSF component %q in %q", part, s)
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return MSF{}, fmt.Errorf("invalid MSF component %q in %q", part, s)
		}
		values[i] = v
	}

	return NewMSF(values[0], values[1], values[2])
}

// MSFFromSectors converts a sector count to an MSF time code
func MSFFromSectors(sectors uint32) MSF {
	minutes := sectors / FramesPerMinute
	seconds := (sectors % FramesPerMinute) / FramesPerSecond
	frames := sectors % FramesPerSecond

	return MSF{Minutes: uint8(minutes), Seconds: uint8(seconds), Frames: uint8(frames)}
}

// Sectors converts the time code to an absolute sector count
func (m MSF) Sectors() uint32 {
	return (uint32(m.Minutes)*SecondsPerMinute+uint32(m.Seconds))*FramesPerSecond + uint32(m.Frames)
}

// Valid reports whether the time code respects the clock ranges
func (m MSF) Valid() bool {
	return m.Minutes <= MaxBCDMinutes && m.Seconds < SecondsPerMinute && m.Frames < FramesPerSecond
}

// BCD returns the time code as three packed decimal bytes
func (m MSF) BCD() [3]byte {
	return [3]byte{ToBCD(m.Minutes), ToBCD(m.Seconds), ToBCD(m.Frames)}
}

// String formats the time code as MM:SS:FF
func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.Minutes, m.Seconds, m.Frames)
}

// MSFFromBCD decodes three packed decimal bytes
func MSFFromBCD(b [3]byte) (MSF, error) {
	var values [3]uint8
	for i, v := range b {
		d, err := FromBCD(v)
		if err != nil {
			return MSF{}, err
		}
		values[i] = d
	}
	m := MSF{Minutes: values[0], Seconds: values[1], Frames: values[2]}
	if !m.Valid() {
		return MSF{}, fmt.Errorf("decoded time code %s out of range", m)
	}
	return m, nil
}

// ToBCD packs a value 0-99 into one byte, tens in the high nibble.
// Values above 99 are clamped.
func ToBCD(v uint8) byte {
	if v > 99 {
		v = 99
	}
	return (v/10)<<4 | v%10
}

// FromBCD unpacks a packed decimal byte
func FromBCD(b byte) (uint8, error) {
	hi, lo := b>>4, b&0x0F
	if hi > 9 || lo > 9 {
		return 0, fmt.Errorf("invalid BCD byte 0x%02X", b)
	}
	return hi*10 + lo, nil
}
