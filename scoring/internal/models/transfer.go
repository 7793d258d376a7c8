// Package models holds the types shared by the scoring pipeline, its log
// sources and its HTTP surface.
package models

import (
	"time"
)

// Window is the look-back for the recent-activity count.
const Window = 10 * time.Minute

// GapSentinel stands in for the average gap of a wallet with fewer than two
// transfers.
const GapSentinel = 9999.0

// TransferEvent is one observed token transfer. From == To is a self-transfer.
type TransferEvent struct {
	Timestamp time.Time `json:"ts"`
	Block     string    `json:"block"`
	Tx        string    `json:"tx"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	TokenID   string    `json:"tokenId"`
}

// Less orders events by time, breaking ties on provenance so that sorting does
// not depend on the order events were read in.
func (e TransferEvent) Less(o TransferEvent) bool {
	if !e.Timestamp.Equal(o.Timestamp) {
		return e.Timestamp.Before(o.Timestamp)
	}
	if e.Block != o.Block {
		return e.Block < o.Block
	}
	if e.Tx != o.Tx {
		return e.Tx < o.Tx
	}
	if e.From != o.From {
		return e.From < o.From
	}
	if e.To != o.To {
		return e.To < o.To
	}
	return e.TokenID < o.TokenID
}

// LatestTimestamp returns the maximum timestamp in events, or the zero time
// for an empty slice.
func LatestTimestamp(events []TransferEvent) time.Time {
	var latest time.Time
	for i, e := range events {
		if i == 0 || e.Timestamp.After(latest) {
			latest = e.Timestamp
		}
	}
	return latest
}
