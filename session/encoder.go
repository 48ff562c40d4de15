package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const sessionFormatVersionCurrent = 1

// validFlagOffset is the byte position of the validity flag in an encoded
// record. The Redis revoke script rewrites it in place.
const validFlagOffset = 1

const (
	maxUserIDLen    = 255
	maxUserAgentLen = 1<<16 - 1
)

// Encode serializes s into the v1 binary layout:
//
//	version(1) | valid(1) | createdAt unix millis(8) | len(1) userID | len(2) userAgent
//
// The session id is the storage key and is not part of the payload.
func Encode(s *Session) ([]byte, error) {
	if len(s.UserID) > maxUserIDLen {
		return nil, errors.New("userID too long")
	}
	if len(s.UserAgent) > maxUserAgentLen {
		return nil, errors.New("userAgent too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 1 + 8 + 1 + len(s.UserID) + 2 + len(s.UserAgent))

	buf.WriteByte(sessionFormatVersionCurrent)
	if s.Valid {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}

	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.UserAgent))); err != nil {
		return nil, err
	}
	buf.WriteString(s.UserAgent)

	return buf.Bytes(), nil
}

// Decode parses a record produced by [Encode]. The returned session has an
// empty ID; callers set it from the storage key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorrupt, version)
	}

	s := &Session{}

	valid, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	switch valid {
	case 0:
	case 1:
		s.Valid = true
	default:
		return nil, fmt.Errorf("%w: invalid flag %d", ErrCorrupt, valid)
	}

	var createdAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.UserID = string(userID)

	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	userAgent := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, userAgent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.UserAgent = string(userAgent)

	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, reader.Len())
	}

	return s, nil
}
