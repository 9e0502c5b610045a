package types

import (
	"strconv"
	"time"

	"github.com/andersfylling/snowflake/v5"
)

// discordEpochMillis is the platform epoch: milliseconds since Unix epoch
// at which the ID timestamp component starts counting (2015-01-01T00:00:00Z).
const discordEpochMillis int64 = 1_420_070_400_000

// Snowflake is a 64-bit sortable identifier. Bits 63-22 encode milliseconds
// since discordEpochMillis; remaining bits are opaque worker/process/sequence
// data never relied upon beyond equality.
type Snowflake uint64

// NewSnowflake wraps a raw 64-bit value, delegating construction to the
// underlying snowflake.ID type so callers get the same representation the
// rest of the ecosystem uses.
func NewSnowflake(v uint64) Snowflake {
	return Snowflake(snowflake.NewID(v))
}

// ParseSnowflake accepts a decimal string form and rejects anything that
// isn't a valid non-negative 64-bit integer.
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Snowflake(v), nil
}

func (s Snowflake) Uint64() uint64 { return uint64(s) }

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Timestamp returns the creation time encoded in the high bits.
func (s Snowflake) Timestamp() time.Time {
	ms := int64(uint64(s)>>22) + discordEpochMillis
	return time.UnixMilli(ms)
}

// WorkerID and ProcessID are opaque except for equality comparisons; exposed
// for completeness, never used to establish identity.
func (s Snowflake) WorkerID() uint8  { return uint8(uint64(s) >> 17 & 0x1F) }
func (s Snowflake) ProcessID() uint8 { return uint8(uint64(s) >> 12 & 0x1F) }
func (s Snowflake) Increment() uint16 { return uint16(uint64(s) & 0xFFF) }

// MarshalJSON always emits the decimal string form, matching platform wire format.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		raw := string(data[1 : len(data)-1])
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		*s = Snowflake(v)
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*s = Snowflake(v)
	return nil
}
