// Package share encodes plan review payloads into URL-safe strings and keeps
// short links to them in Redis.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"golang.org/x/crypto/blake2b"

	"planmark/api/internal/annotation"
)

var (
	ErrInvalidPayload = errors.New("invalid share payload")
	ErrNotFound       = errors.New("share not found")
)

// idLength is the number of hash bytes kept in a short link ID.
const idLength = 10

// maxDecodedSize caps how much a payload may inflate to.
const maxDecodedSize = 8 << 20

// Payload is what a shared review link carries.
type Payload struct {
	Plan        string                  `json:"plan"`
	Annotations []annotation.Annotation `json:"annotations"`
}

// Compress serializes payload as JSON, raw-deflates it and encodes the result
// as unpadded base64url.
func Compress(payload Payload) (string, error) {
	if payload.Annotations == nil {
		payload.Annotations = []annotation.Annotation{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal share payload: %w", err)
	}

	var buf bytes.Buffer
	writer, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return "", fmt.Errorf("deflate share payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("deflate share payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress. Any malformed input yields ErrInvalidPayload.
func Decompress(encoded string) (Payload, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: base64: %v", ErrInvalidPayload, err)
	}

	reader := flate.NewReader(bytes.NewReader(compressed))
	defer reader.Close()
	raw, err := io.ReadAll(io.LimitReader(reader, maxDecodedSize+1))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: inflate: %v", ErrInvalidPayload, err)
	}
	if len(raw) > maxDecodedSize {
		return Payload{}, fmt.Errorf("%w: payload too large", ErrInvalidPayload)
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Payload{}, fmt.Errorf("%w: json: %v", ErrInvalidPayload, err)
	}
	if payload.Annotations == nil {
		payload.Annotations = []annotation.Annotation{}
	}
	return payload, nil
}

// ID derives a short content-addressed identifier for an encoded payload.
func ID(encoded string) string {
	sum := blake2b.Sum256([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(sum[:idLength])
}
