// Package burgerdrop is a terminal arcade game built around an adaptive
// frame budget.
//
// Ingredients fall from the top of the playfield. Each customer order lists
// a stack of ingredients that must be clicked in sequence before the
// customer's patience runs out. Completed orders score points and grow a
// combo; wrong clicks and expired orders cost lives.
//
// # Architecture
//
// Every short-lived entity (ingredients, particles, celebration bursts,
// power-ups) is recycled through typed object pools, and a performance
// monitor watches frame times. When the average frame rate falls under a
// threshold for long enough the monitor lowers the quality level, which
// shrinks the particle pools and switches renderer features off. When the
// frame rate recovers the level goes back up. Hysteresis and a voting
// window keep the level from oscillating.
//
// # Quick Start
//
//	burgerdrop config init
//	burgerdrop play
//	burgerdrop bench --profile all --output report.json
//	burgerdrop serve --addr :8080
//
// # Key Packages
//
//	pkg/pool          - Generic object pools and the pool manager
//	pkg/performance   - Frame-time monitor, quality levels and device probing
//	pkg/config        - YAML/env configuration with validation
//	pkg/highscore     - Best-score persistence (file, Postgres, MySQL, MongoDB)
//	pkg/compression   - Stream compression for frame traces
//	pkg/metrics       - Prometheus collectors for pools and the monitor
//	pkg/observability - OpenTelemetry session tracing
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	internal/game     - Game state, the tick loop and input handling
//	internal/terminal - tcell renderer and input translation
//	internal/audio    - Sound effects
//	internal/server   - High score API, metrics and debug endpoints
//	internal/simulation - Headless profiles behind "burgerdrop bench"
package burgerdrop
