package model

// ScanResult is the shape a gateway fetch comes back in: a single record,
// a list of records, or a list of lists of records. The concrete types are
// Single, List and NestedList.
type ScanResult interface {
	isScanResult()
}

type Single struct {
	Record Record
}

type List []Record

type NestedList [][]Record

func (Single) isScanResult()     {}
func (List) isScanResult()       {}
func (NestedList) isScanResult() {}

// Records returns every record of sr in traversal order.
func Records(sr ScanResult) []Record {
	switch res := sr.(type) {
	case Single:
		return []Record{res.Record}
	case List:
		return append([]Record(nil), res...)
	case NestedList:
		var out []Record
		for _, inner := range res {
			out = append(out, inner...)
		}
		return out
	default:
		return nil
	}
}

// Flatten returns the leaf records of sr in traversal order. Records
// without an id or a value are dropped.
func Flatten(sr ScanResult) []Record {
	var leaves []Record
	for _, r := range Records(sr) {
		if r.IsLeaf() {
			leaves = append(leaves, r)
		}
	}
	return leaves
}

// Len counts all records of sr, leaves and containers alike.
func Len(sr ScanResult) int {
	switch res := sr.(type) {
	case Single:
		return 1
	case List:
		return len(res)
	case NestedList:
		n := 0
		for _, inner := range res {
			n += len(inner)
		}
		return n
	default:
		return 0
	}
}
