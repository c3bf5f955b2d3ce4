package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateReferenceID generates a unique reference ID for one payout
// attempt. The provider keys idempotency on this value and the transaction
// log cross-references it, so it must never repeat across attempts.
func GenerateReferenceID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%s", prefix, strings.ToUpper(id[:20]))
}
