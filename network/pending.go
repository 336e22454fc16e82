package network

const pendingBufferSize = 64

// PendingRecord is an outstanding request awaiting its result.
type PendingRecord struct {
	RequestID uint32
	Request   any
}

// PendingRequests is a ring buffer of recent requests keyed by request id,
// used to match server results to what was asked.
type PendingRequests struct {
	history [pendingBufferSize]PendingRecord
}

// Store saves req under id, overwriting whatever used the slot before.
func (pb *PendingRequests) Store(id uint32, req any) {
	pb.history[id%pendingBufferSize] = PendingRecord{RequestID: id, Request: req}
}

// Take returns and forgets the request stored under id. Returns false if not
// found or if the slot has been overwritten.
func (pb *PendingRequests) Take(id uint32) (PendingRecord, bool) {
	idx := id % pendingBufferSize
	record := pb.history[idx]
	if record.Request == nil || record.RequestID != id {
		return PendingRecord{}, false
	}
	pb.history[idx] = PendingRecord{}
	return record, true
}
