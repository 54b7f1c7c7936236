package db

import (
	"github.com/jonathan/match-engine/internal/agents"
	"github.com/jonathan/match-engine/internal/match"
)

// The pipelines consume the store through narrow interfaces; keep the
// concrete type honest at compile time.
var (
	_ match.Store      = (*DB)(nil)
	_ agents.RunStore  = (*DB)(nil)
	_ agents.TraceSink = (*DB)(nil)
	_ agents.TierCache = (*DB)(nil)
)
