package model

// OutputLookup is an indexed transaction output with its decoded addresses.
type OutputLookup struct {
	Network   Network
	TxID      string
	Index     uint32
	Value     uint64
	Addresses []string
}
