package cs43l22

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// i2cDevClass is where the kernel lists i2c-dev adapters.
const i2cDevClass = "/sys/class/i2c-dev"

// Adapter describes an i2c-dev bus adapter.
type Adapter struct {
	Bus  int
	Name string
	Path string // Device node, e.g. /dev/i2c-1.
}

// String returns a human-readable representation of the Adapter.
func (a Adapter) String() string {
	return fmt.Sprintf("Bus %d: %s (%s)", a.Bus, a.Name, a.Path)
}

// EnumerateAdapters lists the i2c-dev adapters known to the kernel, ordered by bus number.
func EnumerateAdapters() ([]Adapter, error) {
	return enumerateAdapters(i2cDevClass)
}

var adapterRegex = regexp.MustCompile(`^i2c-(\d+)$`)

func enumerateAdapters(root string) ([]Adapter, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", root, err)
	}

	var result []Adapter
	for _, e := range entries {
		matches := adapterRegex.FindStringSubmatch(e.Name())
		if len(matches) != 2 {
			continue
		}

		bus, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		name, err := os.ReadFile(filepath.Join(root, e.Name(), "name"))
		if err != nil {
			// Older kernels only expose the name on the device link.
			name, _ = os.ReadFile(filepath.Join(root, e.Name(), "device", "name"))
		}

		result = append(result, Adapter{
			Bus:  bus,
			Name: strings.TrimSpace(string(name)),
			Path: fmt.Sprintf("/dev/i2c-%d", bus),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Bus < result[j].Bus
	})

	return result, nil
}
