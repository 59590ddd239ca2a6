package billing

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Signature derives the bill's digital signature from its identifying
// fields. It is computed once at creation and stored immutably; verifiers
// can recompute it from the same fields.
func Signature(billNumber, partyName string, totalAmount float64) string {
	sum := sha3.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", billNumber, partyName, totalAmount)))
	return hex.EncodeToString(sum[:])
}
