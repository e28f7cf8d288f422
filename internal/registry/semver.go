package registry

import (
	"fmt"

	"github.com/blang/semver"
)

// ValidateVersion reports whether a version string is valid semver
func ValidateVersion(version string) error {
	if _, err := semver.Parse(version); err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}
	return nil
}

// CompareVersions returns -1 if v1 < v2, 0 if equal, 1 if v1 > v2
func CompareVersions(v1, v2 string) (int, error) {
	a, err := semver.Parse(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", v1, err)
	}
	b, err := semver.Parse(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", v2, err)
	}
	return a.Compare(b), nil
}

// IsNewer reports whether v1 is newer than v2
func IsNewer(v1, v2 string) (bool, error) {
	cmp, err := CompareVersions(v1, v2)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}

// IsCompatible reports whether two versions share the same major version
func IsCompatible(v1, v2 string) (bool, error) {
	a, err := semver.Parse(v1)
	if err != nil {
		return false, err
	}
	b, err := semver.Parse(v2)
	if err != nil {
		return false, err
	}
	return a.Major == b.Major, nil
}

// LatestVersion returns the highest version from the list
func LatestVersion(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", fmt.Errorf("no versions given")
	}

	latest := versions[0]
	latestParsed, err := semver.Parse(latest)
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", latest, err)
	}
	for _, v := range versions[1:] {
		parsed, err := semver.Parse(v)
		if err != nil {
			return "", fmt.Errorf("invalid version %q: %w", v, err)
		}
		if parsed.GT(latestParsed) {
			latest = v
			latestParsed = parsed
		}
	}
	return latest, nil
}

// IncrementVersion bumps the given part ("major", "minor" or "patch")
func IncrementVersion(version, part string) (string, error) {
	v, err := semver.Parse(version)
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", version, err)
	}

	switch part {
	case "major":
		return fmt.Sprintf("%d.0.0", v.Major+1), nil
	case "minor":
		return fmt.Sprintf("%d.%d.0", v.Major, v.Minor+1), nil
	case "patch":
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch+1), nil
	default:
		return "", fmt.Errorf("invalid part: %s", part)
	}
}
