package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const cursorVersion = "c1"

// Cursor is the (createdAt, id) position of the last order on the previous page. Listings run
// newest first and break timestamp ties on id, so the pair is always unique.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// EncodeToken renders the cursor as an opaque URL-safe token. The zero cursor is "".
func EncodeToken(c Cursor) (string, error) {
	if c.IsZero() {
		return "", nil
	}
	if c.ID == "" {
		return "", errors.New("pagination: cursor without id")
	}
	raw := cursorVersion + "." + strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 36) + "." + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// DecodeToken reverses EncodeToken. An empty token yields the zero cursor.
func DecodeToken(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: not base64", ErrInvalidPageToken)
	}
	version, rest, ok := strings.Cut(string(raw), ".")
	if !ok || version != cursorVersion {
		return Cursor{}, fmt.Errorf("%w: unknown format", ErrInvalidPageToken)
	}
	stamp, id, ok := strings.Cut(rest, ".")
	if !ok || id == "" {
		return Cursor{}, fmt.Errorf("%w: missing id", ErrInvalidPageToken)
	}
	nanos, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp", ErrInvalidPageToken)
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
