package meeting

import "fmt"

// FormatDuration renders a whole number of elapsed seconds as MM:SS, or
// HH:MM:SS once an hour has passed. Fields are zero-padded to two digits.
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}

	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
