// Package ax25 encodes AX.25 address fields and UI frames as used by APRS.
package ax25

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// AddressLen is the size of one encoded address field.
	AddressLen = 7

	MaxCallsignLen = 6
	MaxSSID        = 15

	ssidReservedBits = 0x60
	commandBit       = 0x80
	endOfAddressBit  = 0x01
)

var (
	ErrInvalidCallsign = errors.New("invalid callsign")
	ErrInvalidSSID     = errors.New("invalid ssid")
	ErrInvalidPath     = errors.New("invalid digipeater path")
)

// Address is a station or digipeater identity: callsign plus SSID.
type Address struct {
	Callsign string
	SSID     uint8
}

// NewAddress validates callsign and ssid. Callsigns are upper-cased; anything
// other than 1-6 ASCII letters or digits is rejected rather than truncated.
func NewAddress(callsign string, ssid int) (Address, error) {
	call := strings.ToUpper(strings.TrimSpace(callsign))
	if call == "" || len(call) > MaxCallsignLen {
		return Address{}, fmt.Errorf("%w %q: must be 1-%d characters", ErrInvalidCallsign, callsign, MaxCallsignLen)
	}
	for i := 0; i < len(call); i++ {
		c := call[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return Address{}, fmt.Errorf("%w %q: character %q not allowed", ErrInvalidCallsign, callsign, c)
		}
	}
	if ssid < 0 || ssid > MaxSSID {
		return Address{}, fmt.Errorf("%w %d for %s: must be 0-%d", ErrInvalidSSID, ssid, call, MaxSSID)
	}
	return Address{Callsign: call, SSID: uint8(ssid)}, nil
}

// ParseAddress parses "CALL" or "CALL-SSID".
func ParseAddress(s string) (Address, error) {
	call, ssidStr, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return NewAddress(call, 0)
	}
	ssid, err := strconv.Atoi(ssidStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w %q in %q", ErrInvalidSSID, ssidStr, s)
	}
	return NewAddress(call, ssid)
}

// ParsePath parses a comma separated digipeater list such as "WIDE1-1,WIDE2-1".
// An empty string is an empty path.
func ParsePath(s string) ([]Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > MaxDigipeaters {
		return nil, fmt.Errorf("%w %q: %d entries, at most %d allowed", ErrInvalidPath, s, len(parts), MaxDigipeaters)
	}
	path := make([]Address, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w %q: empty entry", ErrInvalidPath, s)
		}
		a, err := ParseAddress(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, s, err)
		}
		path = append(path, a)
	}
	return path, nil
}

func (a Address) String() string {
	if a.SSID == 0 {
		return a.Callsign
	}
	return a.Callsign + "-" + strconv.Itoa(int(a.SSID))
}

// Encode returns the 7 byte address field: the space padded callsign with
// every byte shifted left one bit, then (ssid<<1)|0x60. isLast sets the
// extension bit that terminates the address field.
func (a Address) Encode(isLast bool) []byte {
	return a.appendEncoded(make([]byte, 0, AddressLen), isLast, false)
}

func (a Address) appendEncoded(dst []byte, isLast, command bool) []byte {
	for i := 0; i < MaxCallsignLen; i++ {
		c := byte(' ')
		if i < len(a.Callsign) {
			c = a.Callsign[i]
		}
		dst = append(dst, c<<1)
	}
	ssid := (a.SSID&0x0F)<<1 | ssidReservedBits
	if command {
		ssid |= commandBit
	}
	if isLast {
		ssid |= endOfAddressBit
	}
	return append(dst, ssid)
}

// DecodeAddress reverses Encode. It reports whether the extension bit was set.
func DecodeAddress(b []byte) (Address, bool, error) {
	if len(b) < AddressLen {
		return Address{}, false, fmt.Errorf("address field too short: %d", len(b))
	}
	call := make([]byte, 0, MaxCallsignLen)
	for _, c := range b[:MaxCallsignLen] {
		if c&endOfAddressBit != 0 {
			return Address{}, false, fmt.Errorf("callsign byte %#02x has extension bit set", c)
		}
		call = append(call, c>>1)
	}
	ssid := b[MaxCallsignLen]
	return Address{
		Callsign: strings.TrimRight(string(call), " "),
		SSID:     (ssid >> 1) & 0x0F,
	}, ssid&endOfAddressBit != 0, nil
}
