package oracle

import "github.com/ethereum/go-ethereum/common"

var observationPrefix = []byte("oracle/observation/")

func observationKey(token0, token1 common.Address) []byte {
	buf := make([]byte, 0, len(observationPrefix)+2*common.AddressLength+1)
	buf = append(buf, observationPrefix...)
	buf = append(buf, token0.Bytes()...)
	buf = append(buf, '/')
	buf = append(buf, token1.Bytes()...)
	return buf
}
