package app

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/eventflow/platform/internal/domain"
)

const ticketCodeBytes = 4

// CodeGenerator returns a fresh ticket code.
type CodeGenerator func() (string, error)

// newTicketCode returns 8 upper-case hex characters from crypto/rand.
func newTicketCode() (string, error) {
	b := make([]byte, ticketCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func newID() string {
	return uuid.NewString()
}

// parseID rejects ids that can never match a row.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", domain.ErrInvalidID
	}
	return parsed.String(), nil
}

// normalizeCode accepts codes typed in any case with stray whitespace.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
