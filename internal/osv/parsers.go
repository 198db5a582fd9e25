package osv

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ParsePackagesArg parses a comma-separated package list from the command
// line. Each entry is name:ecosystem:version, e.g.
// "requests:PyPI:2.25.0,lodash:npm:4.17.20".
func ParsePackagesArg(s string) ([]Package, error) {
	var pkgs []Package
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid package format %q: expected package:ecosystem:version", entry)
		}
		pkgs = append(pkgs, Package{
			Name:      parts[0],
			Ecosystem: parts[1],
			Version:   parts[2],
		})
	}
	return pkgs, nil
}

// filePackage mirrors the JSON shape of a packages file entry. All three keys
// are required.
type filePackage struct {
	PackageName *string `json:"package_name"`
	Ecosystem   *string `json:"ecosystem"`
	Version     *string `json:"version"`
}

// ParsePackagesFile reads a JSON array of packages:
//
//	[
//	  {"package_name": "requests", "ecosystem": "PyPI", "version": "2.25.0"},
//	  {"package_name": "lodash", "ecosystem": "npm", "version": "4.17.20"}
//	]
func ParsePackagesFile(path string) ([]Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []filePackage
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	pkgs := make([]Package, 0, len(raw))
	for i, fp := range raw {
		if fp.PackageName == nil || fp.Ecosystem == nil || fp.Version == nil {
			return nil, fmt.Errorf("package %d in %s is missing required keys (package_name, ecosystem, version)", i, path)
		}
		pkgs = append(pkgs, Package{
			Name:      *fp.PackageName,
			Ecosystem: *fp.Ecosystem,
			Version:   *fp.Version,
		})
	}
	return pkgs, nil
}
