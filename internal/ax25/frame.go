package ax25

import (
	"fmt"
)

const (
	// ControlUI is the control field of an unnumbered information frame.
	ControlUI = 0x03
	// PIDNoLayer3 marks the information field as carrying no layer 3 protocol.
	PIDNoLayer3 = 0xF0

	MaxDigipeaters = 8
)

// BuildUIFrame assembles destination, source and digipeater addresses,
// the UI control byte, the PID byte and the payload.
//
// The destination carries the command bit, as APRS beacons are commands.
// Exactly one address carries the extension bit: the last digipeater, or
// the source when there is no path.
func BuildUIFrame(dst, src Address, path []Address, payload []byte) ([]byte, error) {
	if len(path) > MaxDigipeaters {
		return nil, fmt.Errorf("%w: %d digipeaters, at most %d allowed", ErrInvalidPath, len(path), MaxDigipeaters)
	}

	n := (2 + len(path)) * AddressLen
	frame := make([]byte, 0, n+2+len(payload))

	frame = dst.appendEncoded(frame, false, true)
	frame = src.appendEncoded(frame, len(path) == 0, false)
	for i, digi := range path {
		frame = digi.appendEncoded(frame, i == len(path)-1, false)
	}

	if err := checkAddressField(frame, 2+len(path)); err != nil {
		return nil, err
	}

	frame = append(frame, ControlUI, PIDNoLayer3)
	frame = append(frame, payload...)
	return frame, nil
}

// SplitAddresses walks the address field of frame up to the address with the
// extension bit and returns the decoded addresses and the remaining bytes.
func SplitAddresses(frame []byte) ([]Address, []byte, error) {
	var addrs []Address
	for off := 0; off+AddressLen <= len(frame); off += AddressLen {
		a, last, err := DecodeAddress(frame[off : off+AddressLen])
		if err != nil {
			return nil, nil, fmt.Errorf("address %d: %w", len(addrs), err)
		}
		addrs = append(addrs, a)
		if last {
			return addrs, frame[off+AddressLen:], nil
		}
	}
	return nil, nil, fmt.Errorf("address field not terminated after %d addresses", len(addrs))
}

func checkAddressField(frame []byte, want int) error {
	addrs, rest, err := SplitAddresses(frame)
	if err != nil {
		return err
	}
	if len(addrs) != want || len(rest) != 0 {
		return fmt.Errorf("address field terminated after %d of %d addresses", len(addrs), want)
	}
	return nil
}
