// Package share keeps short-lived cross-cutting state: the history of
// recently completed transfers exposed by the admin API.
package share

import (
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/shellbox-go/shellbox/tool"
	"github.com/shellbox-go/shellbox/types"
)

const (
	DefaultTTL = 300 * time.Second // set 300 seconds.
)

var (
	recentTransfers = ttlworker.NewCache[string, types.TransferRecord](DefaultTTL)
)

// RecordTransfer stores a completed or failed transfer in the history cache.
func RecordTransfer(rec types.TransferRecord) {
	if rec.ID == "" {
		return
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	recentTransfers.Set(rec.ID, rec)
	if rec.Failed {
		tool.DefaultLogger.Warnf("Transfer %s failed: %s (%s)", rec.ID, rec.FileName, rec.Error)
	} else {
		tool.DefaultLogger.Debugf("Transfer %s recorded: %s (%d bytes)", rec.ID, rec.FileName, rec.Bytes)
	}
}

// GetTransfer returns the record for id, if still cached.
func GetTransfer(id string) (types.TransferRecord, bool) {
	rec := recentTransfers.Get(id)
	return rec, rec.ID != ""
}

// ListTransfers returns all cached transfer records.
func ListTransfers() []types.TransferRecord {
	records := make([]types.TransferRecord, 0)
	err := recentTransfers.Range(func(k string, v types.TransferRecord) error {
		records = append(records, v)
		return nil
	})
	if err != nil {
		return nil
	}
	return records
}
