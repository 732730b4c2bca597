package engine

import (
	"time"

	"paroletrack/internal/geo"
	"paroletrack/internal/model"
)

// shouldRetain decides whether a sample becomes a durable history
// record or only updates the current position. High-frequency
// reporters are thinned: keep the first sample ever, then one per
// retention interval, plus any sample showing real movement.
func (e *Engine) shouldRetain(last *model.HistoryRecord, now time.Time, pos model.GeoPoint) bool {
	if last == nil {
		return true
	}
	if now.Sub(last.StoredAt) > time.Duration(e.cfg.RetentionMinIntervalSec)*time.Second {
		return true
	}
	return geo.DistanceMeters(last.Point(), pos) > e.cfg.RetentionMinDistanceM
}
