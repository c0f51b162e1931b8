package goSession

import (
	"fmt"

	"github.com/MrEthical07/goSession/internal"
)

// NewSessionID returns a random 128-bit session id encoded as 22 base64url
// characters. The store accepts any non-empty id; this is the recommended
// generator for callers that have none.
func NewSessionID() (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return sid.String(), nil
}
