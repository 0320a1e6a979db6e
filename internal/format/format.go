// Package format converts raw byte and second counts into the
// human-readable strings stored in the catalog.
package format

import "fmt"

// Placeholder is returned for zero or negative inputs. Returning a
// placeholder instead of "0.00 B" / "0:00" is a deliberate contract
// choice: upstream reports zero when the value is unknown, not when it
// is actually zero.
const Placeholder = "Unknown"

// Duration formats a second count as H:MM:SS, or MM:SS when there is
// no hour component. Minutes and seconds are zero-padded; the leading
// unit is not.
func Duration(totalSeconds int) string {
	if totalSeconds <= 0 {
		return Placeholder
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Size formats a byte count with two decimal places, scaled to the
// largest unit in B..TB for which the value stays below 1024. TB is
// the ceiling unit.
func Size(bytes int64) string {
	if bytes <= 0 {
		return Placeholder
	}

	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}
