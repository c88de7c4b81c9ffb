package tool

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateInvoiceNumber builds a unique, human-readable invoice number like
// INV-20260301-1a2b3c.
func GenerateInvoiceNumber(at time.Time) string {
	u := uuid.New().String()
	return fmt.Sprintf("INV-%s-%s", at.Format("20060102"), u[:6])
}
