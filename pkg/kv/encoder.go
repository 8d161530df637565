package kv

import (
	"github.com/kelindar/binary"
)

func encodeEdges(sw []KVEdge) ([]byte, error) {
	bb, err := binary.Marshal(sw)
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func loadEdges(bbCompressed []byte) ([]KVEdge, error) {
	bb, err := decompress(bbCompressed)
	if err != nil {
		return nil, err
	}
	var sw []KVEdge
	err = binary.Unmarshal(bb, &sw)
	return sw, err
}
