package models

// Transaction is the persisted form of a single record stream item. The two
// blobs are stored raw; interpreting transaction semantics is downstream work.
type Transaction struct {
	ConsensusNs      int64  `json:"consensus_ns"`
	FileName         string `json:"file_name"`
	TransactionBytes []byte `json:"transaction_bytes"`
	RecordBytes      []byte `json:"record_bytes"`
}
