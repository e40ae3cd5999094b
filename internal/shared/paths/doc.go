// Package paths provides standardized filesystem paths.
//
// # Directory Structure
//
//	/data/service/el1/public/scene/   (key/value storage, one JSON file per type)
//	  ├── aspect-ratio.json
//	  └── startup-config.json
//	/etc/scene/
//	  ├── large_fold_flag             (feature flag, first line ENABLED)
//	  └── product.yaml                (fold thresholds)
//	/system/lib64/plugins/            (sensor plugins, searched first)
//	/vendor/lib64/plugins/
//
// # Usage
//
//	file, err := paths.StorageFile(cfg.Storage.Dir, "aspect-ratio")
//	if err != nil {
//	    return err
//	}
package paths
