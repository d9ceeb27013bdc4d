// Package checksum implements the additive checksum stored in asset bundle
// headers. It detects accidental corruption and truncation only; it is not a
// cryptographic hash and offers no tamper resistance.
package checksum

// Modulus bounds checksum values. The on-device reader compares the stored
// u32 against a 16-bit wrapped sum, so values never exceed 0xFFFF.
const Modulus = 1 << 16

// Sum returns the additive checksum of data: the sum of all byte values
// modulo 65536.
func Sum(data []byte) uint32 {
	var d Digest
	d.Write(data)
	return d.Sum32()
}

// Digest accumulates an additive checksum incrementally. Feeding the same
// bytes in any chunking yields the same result as a single Sum call.
type Digest struct {
	sum uint64
}

// Write adds p to the running sum. It never fails.
func (d *Digest) Write(p []byte) {
	for _, b := range p {
		d.sum += uint64(b)
	}
	d.sum %= Modulus
}

// Sum32 returns the checksum of all bytes written so far.
func (d *Digest) Sum32() uint32 {
	return uint32(d.sum % Modulus)
}

// Reset clears the running sum.
func (d *Digest) Reset() {
	d.sum = 0
}
