// Package serial decodes and re-encodes Borderlands 4 item serials.
//
// An item serial is a printable string that packs an item's attributes
// (type, rarity, level, manufacturer, stat rolls and part lists) into a
// compact form. This package exposes those attributes as editable fields
// and writes edits back without disturbing the bytes it does not
// understand.
//
// # Serial Format
//
// Every serial starts with a three character prefix followed by the payload:
//
//	@U<type><payload>
//
// The type character selects the decode path:
//   - 'r', 'g': weapons
//   - 'e': equipment
//   - 'd': alternate equipment
//   - anything else: generic best-effort decode
//
// The payload is written in an 85 symbol alphabet. Groups of five digits
// carry four bytes: the digits are weighted by 85^4, 85^3, 85^2, 85 and 1,
// summed, masked to 32 bits and split little-endian. A trailing group of
// n digits (n < 5) is padded with the highest digit and yields n-1 bytes.
// Characters outside the alphabet are skipped while decoding; some captured
// serials carry stray separators and they must not shift the digit stream.
//
// # Markers
//
// A few literal substrings delimit regions that are not part of the fixed
// byte layout:
//   - "Fme!K" is followed by a five character rarity bundle
//   - "RG}" or "RG/" start a manufacturer effects block ending at 's'
//   - "/A" .. "/F" select a pool and are followed by "`" and a length nibble
//
// Pool "/F" only pairs with nibble "5". Asking the encoder to write any
// other nibble for it returns ErrPoolNibbleMismatch.
//
// # Usage
//
//	item := serial.Decode("@Ugr$Q9m/$Qa!a%H`NgZl^aX^(?UrYc")
//	if item.ItemType == serial.ItemTypeError {
//	    return errors.New(item.RawFields.Error)
//	}
//
//	item.Stats.PrimaryStat = serial.Int(1200)
//
//	out, err := serial.Encode(item)
//	if err != nil {
//	    return err // pool / nibble mismatch
//	}
//
// # Round Trips
//
// Encoding an unmodified item returns the original serial byte for byte.
// When fields change, only the five digit groups whose bytes changed are
// rewritten; every other character of the payload, including stray
// non-alphabet characters and marker regions, is kept as it was.
//
// # Error Handling
//
// Decode never fails. Malformed input produces an Item whose ItemType is
// ItemTypeError and whose RawFields.Error describes the problem.
//
// Encode only returns an error for pool / nibble violations. Any other
// failure is logged and reported through EncodeResult.Fallback, with the
// original serial as the result.
//
// # Thread Safety
//
// Codec holds no mutable state. Decode and Encode may be called from any
// number of goroutines; each call owns the buffers it allocates.
package serial
