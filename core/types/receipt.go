package types

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ugorji/go/codec"
)

const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the stored (consensus-trimmed) receipt record. Logs live in
// their own table keyed by block number and transaction index.
type Receipt struct {
	Type              uint8
	PostState         []byte
	Status            uint64
	CumulativeGasUsed uint64
}

type Receipts []*Receipt

// Log is one emitted event record.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

type Logs []*Log

// Receipts and logs are CBOR on disk. Pooled encoder/decoder instances keep
// the hot read path allocation-free.
var (
	cborEncoderPool = make(chan *codec.Encoder, 128)
	cborDecoderPool = make(chan *codec.Decoder, 128)
)

func cborEncoder(w *bytes.Buffer) *codec.Encoder {
	var e *codec.Encoder
	select {
	case e = <-cborEncoderPool:
		e.Reset(w)
	default:
		var handle codec.CborHandle
		handle.StructToArray = true
		e = codec.NewEncoder(w, &handle)
	}
	return e
}

func cborDecoder(data []byte) *codec.Decoder {
	var d *codec.Decoder
	select {
	case d = <-cborDecoderPool:
		d.ResetBytes(data)
	default:
		var handle codec.CborHandle
		handle.StructToArray = true
		d = codec.NewDecoderBytes(data, &handle)
	}
	return d
}

func returnEncoder(e *codec.Encoder) {
	select {
	case cborEncoderPool <- e:
	default:
	}
}

func returnDecoder(d *codec.Decoder) {
	select {
	case cborDecoderPool <- d:
	default:
	}
}

func marshalCbor(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	e := cborEncoder(&buf)
	defer returnEncoder(e)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalCbor(data []byte, v interface{}) error {
	d := cborDecoder(data)
	defer returnDecoder(d)
	return d.Decode(v)
}

func EncodeReceipts(rs Receipts) ([]byte, error) { return marshalCbor(rs) }

func DecodeReceipts(data []byte) (Receipts, error) {
	var rs Receipts
	if err := unmarshalCbor(data, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func EncodeLogs(ls Logs) ([]byte, error) { return marshalCbor(ls) }

func DecodeLogs(data []byte) (Logs, error) {
	var ls Logs
	if err := unmarshalCbor(data, &ls); err != nil {
		return nil, err
	}
	return ls, nil
}
