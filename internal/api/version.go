package api

import "github.com/MJE43/entropy-casino-engine/internal/games"

// Set at build time with -ldflags "-X .../internal/api.EngineVersion=...".
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// GetVersionInfo reports the build and the algorithm each game replays with.
// A stored result is only reproducible by an engine whose algorithm string for
// that game matches.
func GetVersionInfo() VersionInfo {
	algorithms := make(map[string]string)
	for _, spec := range games.ListGames() {
		algorithms[string(spec.ID)] = spec.Algorithm
	}
	return VersionInfo{
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Algorithms:    algorithms,
	}
}
