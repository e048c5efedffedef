package marker

import "github.com/e7canasta/scansession/internal/types"

// VerifyMsi checks the trailing check digits of an MSI Plessey payload
// against scheme. Non-digit payloads are invalid for every scheme but None.
func VerifyMsi(payload []byte, scheme types.MsiChecksum) types.ChecksumOutcome {
	if scheme == types.MsiChecksumNone {
		return types.ChecksumNotApplicable
	}

	digits := make([]int, len(payload))
	for i, b := range payload {
		if b < '0' || b > '9' {
			return types.ChecksumInvalid
		}
		digits[i] = int(b - '0')
	}

	var checks []func([]int) int
	switch scheme {
	case types.MsiChecksumMod10:
		checks = []func([]int) int{mod10}
	case types.MsiChecksumMod1010:
		checks = []func([]int) int{mod10, mod10}
	case types.MsiChecksumMod11:
		checks = []func([]int) int{mod11}
	case types.MsiChecksumMod1110:
		checks = []func([]int) int{mod11, mod10}
	default:
		return types.ChecksumInvalid
	}

	// Check digits are appended in order, so verify from the innermost one.
	data := digits[:len(digits)-min(len(checks), len(digits))]
	for _, check := range checks {
		next := len(data)
		if next >= len(digits) || len(data) == 0 {
			return types.ChecksumInvalid
		}
		if check(data) != digits[next] {
			return types.ChecksumInvalid
		}
		data = digits[:next+1]
	}
	return types.ChecksumValid
}

// AppendMsi returns payload with the check digits of scheme appended.
func AppendMsi(payload []byte, scheme types.MsiChecksum) []byte {
	out := append([]byte(nil), payload...)
	digits := make([]int, len(payload))
	for i, b := range payload {
		digits[i] = int(b - '0')
	}
	add := func(check func([]int) int) {
		c := check(digits)
		digits = append(digits, c)
		out = append(out, byte('0'+c))
	}
	switch scheme {
	case types.MsiChecksumMod10:
		add(mod10)
	case types.MsiChecksumMod1010:
		add(mod10)
		add(mod10)
	case types.MsiChecksumMod11:
		add(mod11)
	case types.MsiChecksumMod1110:
		add(mod11)
		add(mod10)
	}
	return out
}

// mod10 is the Luhn check digit.
func mod10(digits []int) int {
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// mod11 uses the IBM weights 2..7 from the right. A remainder that would need
// the digit 10 maps to 0.
func mod11(digits []int) int {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += digits[i] * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	c := (11 - sum%11) % 11
	if c == 10 {
		c = 0
	}
	return c
}
