// Package config loads service configuration from the environment.
//
// Every setting has an environment variable and a default (see Config). Fold
// thresholds may additionally come from a per-device product file in YAML or
// TOML, named by FOLD_PRODUCT_CONFIG:
//
//	fold:
//	  policy: dual
//	  dual:
//	    expand: 150
//	  hall_switch_apps:
//	    - com.example.*
package config
