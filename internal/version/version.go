// Package version gates the safe file's on-disk format version,
// modeled on the teacher's own latest-version check (which compares a
// fetched semver.Version against a compiled-in CURRENT_VERSION); here
// the comparison is against the format-version field recorded in the
// safe file itself, so an older build never misreads a file written by
// a newer format revision.
package version

import (
	"fmt"

	"github.com/blang/semver"
)

// CurrentFormat is the on-disk format version this build writes and
// the newest it understands reading.
var CurrentFormat = semver.MustParse("1.0.0")

// CheckCompatible parses the stored format-version string and returns
// an error if this build's major version is older than the file's.
// A missing field is treated as "1.0.0" (the version this format was
// introduced at) for files that predate the field entirely.
func CheckCompatible(stored string) error {
	if stored == "" {
		stored = "1.0.0"
	}
	v, err := semver.Parse(stored)
	if err != nil {
		return fmt.Errorf("version: malformed format-version %q: %w", stored, err)
	}
	if v.Major > CurrentFormat.Major {
		return fmt.Errorf("version: safe format %s is newer than this build understands (%s)", v, CurrentFormat)
	}
	return nil
}
