// Package fuzzyflake - id.go provides the ID type: parsing, component
// extraction, comparison, and JSON/text/binary/database integration.

package fuzzyflake

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// ID is a 64-bit Snowflake identifier.
//
// # Structure
//
// The platform packs a creation timestamp into the high 42 bits
// (milliseconds since Epoch) and worker, process, and sequence fields
// into the low 22:
//
//	timestamp = id >> 22          (42 bits)
//	worker    = (id >> 17) & 0x1F (5 bits)
//	process   = (id >> 12) & 0x1F (5 bits)
//	sequence  = id & 0xFFF        (12 bits)
//
// IDs are therefore sortable by creation time, and every real ID is at
// least 17 decimal digits long.
//
// # Interface Implementations
//
// The ID type implements the standard interfaces needed to move through
// an application untouched:
//   - json.Marshaler/Unmarshaler: string form, safe for JavaScript
//   - encoding.TextMarshaler/Unmarshaler: for YAML, TOML, CSV
//   - encoding.BinaryMarshaler/Unmarshaler: 8-byte big-endian
//   - sql.Scanner/driver.Valuer: for database columns
//   - fmt.Stringer: decimal representation
type ID uint64

// Uint64 returns the ID as a uint64.
func (id ID) Uint64() uint64 {
	return uint64(id)
}

// Int64 returns the ID as an int64, the representation relational
// databases use. Timestamps stay below 63 bits until far past the
// platform's lifespan, so the conversion is lossless in practice.
func (id ID) Int64() int64 {
	return int64(id)
}

// String returns the decimal representation of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Hex returns the hexadecimal representation, handy when eyeballing the
// bit fields.
func (id ID) Hex() string {
	return strconv.FormatUint(uint64(id), 16)
}

// ParseID parses a decimal string into an ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake ID: %w", err)
	}
	return ID(v), nil
}

// IsValid reports whether the ID satisfies the platform's 17-digit
// decimal floor. Index.Add panics on IDs that fail this check.
func (id ID) IsValid() bool {
	return id >= MinIDNumber
}

// ============================================================================
// Component Extraction
// ============================================================================

const (
	workerBits   = 5
	processBits  = 5
	sequenceBits = 12
)

// Timestamp returns the ID's creation time in milliseconds since the
// Unix epoch.
func (id ID) Timestamp() int64 {
	return int64(id>>payloadBits) + Epoch
}

// Time returns the ID's creation time.
func (id ID) Time() time.Time {
	ms := id.Timestamp()
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}

// Age returns how long ago the ID was created.
func (id ID) Age() time.Duration {
	return time.Since(id.Time())
}

// Worker returns the 5-bit worker field.
func (id ID) Worker() uint8 {
	return uint8(id>>(processBits+sequenceBits)) & (1<<workerBits - 1)
}

// Process returns the 5-bit process field.
func (id ID) Process() uint8 {
	return uint8(id>>sequenceBits) & (1<<processBits - 1)
}

// Sequence returns the 12-bit sequence field.
func (id ID) Sequence() uint16 {
	return uint16(id) & (1<<sequenceBits - 1)
}

// ============================================================================
// Comparison
// ============================================================================

// Before reports whether id was created before other. Snowflakes are
// monotonic, so this is plain numeric comparison.
func (id ID) Before(other ID) bool {
	return id < other
}

// After reports whether id was created after other.
func (id ID) After(other ID) bool {
	return id > other
}

// Compare returns -1, 0, or 1 as id sorts before, equal to, or after
// other.
func (id ID) Compare(other ID) int {
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	default:
		return 0
	}
}

// ============================================================================
// JSON / Text / Binary Marshaling
// ============================================================================

// MarshalJSON implements json.Marshaler.
//
// The ID is encoded as a JSON string, not a number: JavaScript numbers
// lose precision past 2^53 and snowflakes are always bigger than that.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting both string and
// number forms.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("unmarshal snowflake ID: %w", err)
	}
	*id = ID(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler with the decimal form.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler as an 8-byte
// big-endian integer.
func (id ID) MarshalBinary() ([]byte, error) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *ID) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("invalid binary data length: %d", len(data))
	}
	*id = ID(binary.BigEndian.Uint64(data))
	return nil
}

// ============================================================================
// SQL Database Integration
// ============================================================================

// Scan implements sql.Scanner, accepting BIGINT, VARCHAR, and TEXT
// columns.
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = 0
		return nil
	}

	switch v := value.(type) {
	case int64:
		*id = ID(v)
	case []byte:
		u, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return err
		}
		*id = ID(u)
	case string:
		u, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		*id = ID(u)
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}

	return nil
}

// Value implements driver.Valuer, storing the ID as an int64.
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}
