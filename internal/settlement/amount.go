package settlement

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a stake or prize denominated in atoms, 1e8 atoms per coin.
// Keeping money in integer atoms avoids accumulating float error across
// rounds; floats only appear at the payout-fraction multiply.
type Amount int64

// AtomsPerCoin is the number of atoms in one whole coin unit.
const AtomsPerCoin = 100_000_000

const maxFracDigits = 8

// ParseAmount parses a decimal coin string such as "0.1" or "1.0" into
// atoms. Up to eight fractional digits are accepted.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > maxFracDigits {
		return 0, fmt.Errorf("amount %q has more than %d fractional digits", s, maxFracDigits)
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	var f int64
	if frac != "" {
		// Right-pad to atom precision: "17" -> 17000000.
		f, err = strconv.ParseInt(frac+strings.Repeat("0", maxFracDigits-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}

	return Amount(w*AtomsPerCoin + f), nil
}

// String formats the amount as a decimal coin string with trailing zeros
// trimmed, e.g. 17000000 atoms -> "0.17".
func (a Amount) String() string {
	whole := int64(a) / AtomsPerCoin
	frac := int64(a) % AtomsPerCoin
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	s := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, s)
}

// Float64 returns the amount in whole coin units.
func (a Amount) Float64() float64 {
	return float64(a) / AtomsPerCoin
}

// MarshalJSON encodes the amount as its decimal coin string so wire
// payloads carry "0.17" rather than raw atoms.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts the decimal coin string form.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ComputePrize returns the pot paid to the winner: the stake pooled by
// every ready participant, less the retained house fraction.
func ComputePrize(stake Amount, readyCount int, payoutFraction float64) Amount {
	return Amount(math.Round(float64(stake) * float64(readyCount) * payoutFraction))
}
