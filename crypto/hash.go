// Package crypto 哈希及摘要算法
package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"

	gopool "github.com/xyzj/go-pool"
)

type HashType byte

const (
	// HashMD5 md5算法
	HashMD5 HashType = iota
	// HashSHA1 sha1算法
	HashSHA1
	// HashSHA256 sha256算法
	HashSHA256
	// HashHMACSHA256 hmacsha256摘要算法
	HashHMACSHA256
)

// CValue 计算结果，可输出[]byte,hex string,base64string
type CValue []byte

// Len 结果长度
func (v CValue) Len() int {
	return len(v)
}

// HexString 结果以hex字符串形式输出
func (v CValue) HexString() string {
	return hex.EncodeToString(v)
}

// URLBase64String 结果以无填充的URLbase64字符串形式输出
func (v CValue) URLBase64String() string {
	return base64.RawURLEncoding.EncodeToString(v)
}

// Equal constant time compare
func (v CValue) Equal(o CValue) bool {
	return hmac.Equal(v, o)
}

type HashOpt struct {
	hmackey  []byte
	poolsize int
}
type HashOpts func(opt *HashOpt)

func HashOptHMacKey(b []byte) HashOpts {
	return func(o *HashOpt) {
		o.hmackey = b
	}
}

// HASH hash算法，内部以池复用 hash.Hash 实例
type HASH struct {
	pool *gopool.GoPool[hash.Hash]
}

// Hash 计算哈希值
func (w *HASH) Hash(b []byte) CValue {
	h := w.pool.Get()
	defer w.pool.Put(h)
	h.Reset()
	h.Write(b)
	return CValue(h.Sum(nil))
}

// NewHash creates a new hash algorithm instance based on the provided hash type.
// HashHMACSHA256 takes its key from HashOptHMacKey.
func NewHash(t HashType, opts ...HashOpts) *HASH {
	opt := &HashOpt{
		hmackey:  []byte{},
		poolsize: 10,
	}
	for _, o := range opts {
		o(opt)
	}
	return &HASH{
		pool: gopool.New(func() hash.Hash {
			switch t {
			case HashMD5:
				return md5.New()
			case HashSHA1:
				return sha1.New()
			case HashHMACSHA256:
				return hmac.New(sha256.New, opt.hmackey)
			default:
				return sha256.New()
			}
		},
			gopool.WithMaxIdleSize(uint32(opt.poolsize)),
		),
	}
}
