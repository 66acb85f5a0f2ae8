package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatUSDProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	grouped := regexp.MustCompile(`^(\d{1,3})(,\d{3})*$`)

	properties.Property("FormatUSD produces valid grouped format", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatUSD(amount)

			if amount >= 0 {
				if !strings.HasPrefix(formatted, "$") {
					t.Logf("expected $ prefix for %f, got %s", amount, formatted)
					return false
				}
			} else if !strings.HasPrefix(formatted, "-$") {
				t.Logf("expected -$ prefix for %f, got %s", amount, formatted)
				return false
			}

			parts := strings.Split(formatted, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("expected 2 decimal places for %f, got %s", amount, formatted)
				return false
			}

			numPart := strings.TrimPrefix(strings.TrimPrefix(parts[0], "-"), "$")
			if !grouped.MatchString(numPart) {
				t.Logf("invalid grouping for %f: %s", amount, formatted)
				return false
			}
			return true
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("FormatUSD preserves value", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatUSD(amount)

			cleaned := strings.NewReplacer("$", "", ",", "").Replace(formatted)
			parsed, err := strconv.ParseFloat(cleaned, 64)
			if err != nil {
				t.Logf("unparsable output %s for %f: %v", formatted, amount, err)
				return false
			}

			rounded := math.Round(amount*100) / 100
			return math.Abs(parsed-rounded) <= 0.01
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("FormatVolume uses correct units", prop.ForAll(
		func(volume int64) bool {
			formatted := FormatVolume(volume)
			switch {
			case volume >= 1_000_000_000:
				return strings.HasSuffix(formatted, "B")
			case volume >= 1_000_000:
				return strings.HasSuffix(formatted, "M")
			case volume >= 1_000:
				return strings.HasSuffix(formatted, "K")
			default:
				return formatted == strconv.FormatInt(volume, 10)
			}
		},
		gen.Int64Range(0, 1e12),
	))

	properties.Property("FormatPercent signs positive values", prop.ForAll(
		func(value float64) bool {
			formatted := FormatPercent(value)
			if !strings.HasSuffix(formatted, "%") {
				return false
			}
			if value > 0 {
				return strings.HasPrefix(formatted, "+")
			}
			return true
		},
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t)
}

func TestFormatUSDExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{1, "$1.00"},
		{999.99, "$999.99"},
		{1000, "$1,000.00"},
		{1234567.89, "$1,234,567.89"},
		{-1234.56, "-$1,234.56"},
		{1000000000, "$1,000,000,000.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if result := FormatUSD(tc.amount); result != tc.expected {
				t.Errorf("FormatUSD(%f) = %s, want %s", tc.amount, result, tc.expected)
			}
		})
	}
}

func TestFormatVolumeExamples(t *testing.T) {
	testCases := []struct {
		volume   int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.50K"},
		{52_000_000, "52.00M"},
		{1_200_000_000, "1.20B"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if result := FormatVolume(tc.volume); result != tc.expected {
				t.Errorf("FormatVolume(%d) = %s, want %s", tc.volume, result, tc.expected)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("hello world", 8); got != "hello..." {
		t.Errorf("TruncateString = %q", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("TruncateString = %q", got)
	}
}
