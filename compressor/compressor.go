// Package compressor 数据压缩，用于对话存储和日志归档
package compressor

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

type Algorithm string

const (
	None   Algorithm = ""
	Gzip   Algorithm = "gzip"
	Snappy Algorithm = "snappy"
	Zstd   Algorithm = "zstd"
)

var (
	// Gzip 池
	gzipWriterPool = sync.Pool{New: func() any { return gzip.NewWriter(nil) }}
	gzipReaderPool = sync.Pool{New: func() any { return new(gzip.Reader) }}

	// Zstd 单例 (内部自带池)
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
}

// ParseAlgorithm 从配置字符串解析算法，"none" 和空字符串均表示不压缩
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case None, "none":
		return None, nil
	case Gzip, Snappy, Zstd:
		return a, nil
	default:
		return None, fmt.Errorf("unsupported algorithm: %s", s)
	}
}

// Ext 压缩文件扩展名
func (a Algorithm) Ext() string {
	switch a {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".sz"
	case Zstd:
		return ".zst"
	}
	return ""
}

// Compress 压缩方法，None 原样返回
func Compress(alg Algorithm, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch alg {
	case None:
		return data, nil

	case Gzip:
		var buf bytes.Buffer
		gw := gzipWriterPool.Get().(*gzip.Writer)
		defer gzipWriterPool.Put(gw)
		gw.Reset(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case Snappy:
		return snappy.Encode(nil, data), nil

	case Zstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", alg)
	}
}

// Decompress 解压方法
func Decompress(alg Algorithm, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch alg {
	case None:
		return data, nil

	case Gzip:
		gr := gzipReaderPool.Get().(*gzip.Reader)
		defer gzipReaderPool.Put(gr)
		if err := gr.Reset(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)

	case Snappy:
		return snappy.Decode(nil, data)

	case Zstd:
		return zstdDecoder.DecodeAll(data, nil)

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", alg)
	}
}
