package sentence

// ChecksumFunc recomputes the expected checksum over the payload bytes of a
// sentence (everything between the start marker and the '*' delimiter,
// exclusive on both ends). The convention across the supported instruments is
// NMEA XOR, but a device definition that disagrees can swap the strategy per
// template via Template.SetChecksum.
type ChecksumFunc func(payload string) uint64

// NMEAChecksum is the standard NMEA 0183 checksum: exclusive-OR accumulation
// over each payload byte.
func NMEAChecksum(payload string) uint64 {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return uint64(sum)
}
