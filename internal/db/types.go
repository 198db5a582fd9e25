package db

import (
	"time"

	"osvscan/internal/osv"
)

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ID        int64      `json:"id"`
	ServerURL string     `json:"server_url"`
	Report    osv.Report `json:"report"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store is the persistent scan-history backend.
type Store interface {
	Close() error
	SaveScan(serverURL string, report osv.Report) error
	History(limit int) ([]ScanRecord, error)
}
