package amm

import "github.com/ethereum/go-ethereum/common"

var (
	poolRecordPrefix = []byte("amm/pool/")
	pairIndexPrefix  = []byte("amm/pair/")
	poolListKey      = []byte("amm/pools")
	feeConfigKey     = []byte("amm/feeconfig")
)

func poolRecordKey(pool common.Address) []byte {
	buf := make([]byte, 0, len(poolRecordPrefix)+common.AddressLength)
	buf = append(buf, poolRecordPrefix...)
	buf = append(buf, pool.Bytes()...)
	return buf
}

func pairIndexKey(tokenA, tokenB common.Address) []byte {
	buf := make([]byte, 0, len(pairIndexPrefix)+2*common.AddressLength+1)
	buf = append(buf, pairIndexPrefix...)
	buf = append(buf, tokenA.Bytes()...)
	buf = append(buf, '/')
	buf = append(buf, tokenB.Bytes()...)
	return buf
}
