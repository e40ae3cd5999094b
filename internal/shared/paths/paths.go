package paths

import (
	"fmt"
	"path/filepath"
)

// Mount points
const (
	Storage = "/data/service/el1/public/scene"
	Etc     = "/etc/scene"
	System  = "/system"
	Vendor  = "/vendor"
)

// Feature flags and product files
const (
	// LargeFoldFlag enables the large-fold hysteresis policy when its first line is ENABLED
	LargeFoldFlag = "/etc/scene/large_fold_flag"

	// ProductConfig is the default fold product configuration
	ProductConfig = "/etc/scene/product.yaml"
)

// SensorPluginDirs returns the directories searched for the sensor plugin, in priority order
func SensorPluginDirs() []string {
	return []string{
		filepath.Join(System, "lib64", "plugins"),
		filepath.Join(Vendor, "lib64", "plugins"),
	}
}

// StorageFile returns the JSON file backing one key/value storage type under dir
func StorageFile(dir, storageType string) (string, error) {
	if err := ValidateName(storageType); err != nil {
		return "", err
	}
	return filepath.Join(dir, storageType+".json"), nil
}

// ValidateName checks that name is usable as a single path element
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("name cannot be an absolute path")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("name %q contains path components", name)
	}
	return nil
}
