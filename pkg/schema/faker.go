package schema

import (
	"fmt"
	"math"
	mathrand "math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var fakerWords = []string{
	"alpha", "beta", "gamma", "delta", "epsilon",
	"zeta", "theta", "lambda", "sigma", "omega",
}

var fakerFirstNames = []string{
	"John", "Jane", "Bob", "Alice", "Charlie", "Diana", "Edward", "Fiona",
}

var fakerDomains = []string{
	"example.com", "test.com", "mock.io", "demo.org",
}

// Faker is the default DataGenerator. With a nil RNG it draws from the
// global math/rand/v2 source; with a seeded RNG its output is deterministic.
type Faker struct {
	rng *mathrand.Rand
}

// NewFaker builds a Faker. Pass nil for non-deterministic output.
func NewFaker(rng *mathrand.Rand) *Faker {
	return &Faker{rng: rng}
}

// Primitive implements DataGenerator.
func (f *Faker) Primitive(typ, format string, c Constraints) any {
	switch typ {
	case "string":
		return f.str(format, c)
	case "integer":
		// Floor, not truncate: for negative draws truncation rounds toward
		// zero and can exceed a negative maximum.
		return int(math.Floor(f.number(c)))
	case "number":
		return f.number(c)
	case "boolean":
		return f.intN(2) == 0
	default:
		return nil
	}
}

func (f *Faker) str(format string, c Constraints) string {
	switch format {
	case "email":
		name := strings.ToLower(fakerFirstNames[f.intN(len(fakerFirstNames))])
		return fmt.Sprintf("%s%d@%s",
			name, f.intN(1000), fakerDomains[f.intN(len(fakerDomains))])
	case "uuid":
		return f.uuid()
	case "uri", "url":
		return "https://" + fakerDomains[f.intN(len(fakerDomains))] + "/" + f.word()
	case "date":
		return f.date().Format("2006-01-02")
	case "date-time":
		return f.date().Format(time.RFC3339)
	case "password":
		return "pass-" + strconv.Itoa(f.intN(1_000_000))
	default:
		s := f.word() + "-" + f.word()
		return clampLen(s, c)
	}
}

// number honors minimum/maximum and rounds to a multipleOf step when set.
func (f *Faker) number(c Constraints) float64 {
	min, max := 0.0, 100.0
	if c.Minimum != nil {
		min = *c.Minimum
	}
	if c.Maximum != nil {
		max = *c.Maximum
	}
	if max < min {
		max = min
	}
	v := min + f.float64()*(max-min)
	if c.MultipleOf != nil && *c.MultipleOf > 0 {
		v = math.Floor(v / *c.MultipleOf) * *c.MultipleOf
		if v < min {
			v = min
		}
	}
	return v
}

func (f *Faker) word() string {
	return fakerWords[f.intN(len(fakerWords))]
}

// date picks a day within roughly the past year, pinned to midnight UTC so
// seeded runs within a session stay stable.
func (f *Faker) date() time.Time {
	base := time.Now().UTC().Truncate(24 * time.Hour)
	return base.AddDate(0, 0, -f.intN(365))
}

// uuid is PRNG-derived when seeded, crypto-random otherwise.
func (f *Faker) uuid() string {
	if f.rng == nil {
		return uuid.NewString()
	}
	var b [16]byte
	for i := range b {
		b[i] = byte(f.rng.IntN(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

func (f *Faker) intN(n int) int {
	if n <= 0 {
		return 0
	}
	if f.rng != nil {
		return f.rng.IntN(n)
	}
	return mathrand.IntN(n)
}

func (f *Faker) float64() float64 {
	if f.rng != nil {
		return f.rng.Float64()
	}
	return mathrand.Float64()
}

func clampLen(s string, c Constraints) string {
	if c.MaxLength != nil && len(s) > *c.MaxLength {
		s = s[:*c.MaxLength]
	}
	for c.MinLength != nil && len(s) < *c.MinLength {
		s += "x"
	}
	return s
}
