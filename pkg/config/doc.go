// Package config provides configuration management for Burger Drop.
//
// # Key Features
//
// - Config: one structure covering game rules, pools, the performance
// monitor, quality overrides, logging, server, metrics, tracing and the
// high-score store
// - Layered loading with viper: defaults, then a YAML file, then
// BURGERDROP_* environment variables
// - Environment variable substitution with ${VAR_NAME} syntax inside the file
// - Validation returning typed validation errors
//
// # Usage
//
//	cfg, err := config.Load("burgerdrop.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	monitor := performance.NewMonitor(cfg.MonitorConfig(performance.High),
//		performance.WithQualityTable(cfg.QualityTable()))
//
// # Environment Overrides
//
// Nested keys map to upper-case variables joined by underscores:
//
//	BURGERDROP_SERVER_ADDR=:9090
//	BURGERDROP_HIGHSCORE_BACKEND=postgres
//	BURGERDROP_HIGHSCORE_DSN=postgres://game@localhost/burgerdrop
//
// # Quality Overrides
//
// Rows of the quality table can be replaced by level name:
//
//	quality:
//	  critical:
//	    max_particles: 10
//	    particle_detail: minimal
//	    render_scale: 0.5
package config
