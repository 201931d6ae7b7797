// Package extract turns raw listing and program pages into program links and
// in-scope domain records. Each strategy is a pure heuristic; the Engine runs
// them in priority order and keeps the first non-empty result.
package extract
