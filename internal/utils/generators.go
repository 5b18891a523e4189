package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateEventID returns a random id for published admission events.
func GenerateEventID() string {
	return "adm_" + uuid.NewString()
}

// ExportFileName builds names like entry_history_20240110_093000.csv.
func ExportFileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102_150405"))
}
