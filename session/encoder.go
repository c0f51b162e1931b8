package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	recordFormatVersionV1 = 1

	// CurrentSchemaVersion is the version byte written by [Encode].
	CurrentSchemaVersion = recordFormatVersionV1

	lastAccessedOffset = 1 + 16 + 8

	maxIPAddressLength = 255
	maxUserAgentLength = 1024

	fixedHeaderSize = lastAccessedOffset + 8
)

// Encode serializes rec into the current binary schema.
//
//	[0]      schema version
//	[1:17]   user UUID
//	[17:25]  created_at unix millis (int64 BE)
//	[25:33]  last_accessed unix millis (int64 BE)
//	[33]     ip length, then ip bytes
//	[..+2]   user-agent length (uint16 BE), then user-agent bytes
func Encode(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrSerialization)
	}
	if len(rec.IPAddress) > maxIPAddressLength {
		return nil, fmt.Errorf("%w: ip address too long", ErrSerialization)
	}
	if len(rec.UserAgent) > maxUserAgentLength {
		return nil, fmt.Errorf("%w: user agent too long", ErrSerialization)
	}

	var buf bytes.Buffer
	buf.Grow(fixedHeaderSize + 1 + len(rec.IPAddress) + 2 + len(rec.UserAgent))

	buf.WriteByte(CurrentSchemaVersion)
	buf.Write(rec.UserID[:])

	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], uint64(rec.CreatedAt.UnixMilli()))
	buf.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(rec.LastAccessed.UnixMilli()))
	buf.Write(scratch[:])

	buf.WriteByte(byte(len(rec.IPAddress)))
	buf.WriteString(rec.IPAddress)

	binary.BigEndian.PutUint16(scratch[:2], uint16(len(rec.UserAgent)))
	buf.Write(scratch[:2])
	buf.WriteString(rec.UserAgent)

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode]. Every failure wraps
// [ErrSerialization].
func Decode(data []byte) (*Record, error) {
	rec, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return rec, nil
}

func decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionV1 {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	rec := &Record{}
	var rawUser [16]byte
	if _, err := io.ReadFull(reader, rawUser[:]); err != nil {
		return nil, err
	}
	rec.UserID = uuid.UUID(rawUser)

	var createdMillis, accessedMillis int64
	if err := binary.Read(reader, binary.BigEndian, &createdMillis); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &accessedMillis); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(createdMillis).UTC()
	rec.LastAccessed = time.UnixMilli(accessedMillis).UTC()
	if rec.LastAccessed.Before(rec.CreatedAt) {
		return nil, errors.New("last access precedes creation")
	}

	ipLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	ip := make([]byte, ipLen)
	if _, err := io.ReadFull(reader, ip); err != nil {
		return nil, err
	}

	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return nil, err
	}
	if uaLen > maxUserAgentLength {
		return nil, errors.New("user agent too long")
	}
	ua := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, ua); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after record")
	}

	rec.IPAddress = Intern(string(ip))
	rec.UserAgent = Intern(string(ua))
	return rec, nil
}
